package shared

import (
	"context"
	"net/http"
	"strconv"
)

// Actor is the already-authenticated caller identity attached by the
// gateway. The service layer trusts it for attribution only; permission
// checks happen upstream.
type Actor struct {
	UserID int64
	Role   string
}

type actorKey struct{}

// ContextWithActor stores the actor on the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor, or a zero Actor when none is set.
func ActorFromContext(ctx context.Context) Actor {
	if actor, ok := ctx.Value(actorKey{}).(Actor); ok {
		return actor
	}
	return Actor{}
}

// ActorMiddleware reads the identity headers set by the auth gateway and
// attaches them to the request context. Requests without an identity are
// rejected; business handlers never see an unattributed call.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		actor := Actor{UserID: userID, Role: r.Header.Get("X-User-Role")}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}
