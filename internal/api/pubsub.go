package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/scholarway/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	TimeWarning struct {
		SessionID        string `json:"session_id"`
		RemainingSeconds int    `json:"remaining_seconds"`
	}

	Submitted struct {
		SessionID string `json:"session_id"`
		Reason    string `json:"reason"`
		Score     string `json:"score"`
	}
)

func (a *API) PublishTimeWarning(ctx context.Context, e domain.EventExamTimeWarning) error {
	return a.publishNotification(ctx, a.userChannel(e.Owner), e.Name(), TimeWarning{
		SessionID:        e.SessionID,
		RemainingSeconds: e.RemainingSeconds,
	})
}

func (a *API) PublishSubmitted(ctx context.Context, e domain.EventExamSubmitted) error {
	return a.publishNotification(ctx, a.userChannel(e.Owner), e.Name(), Submitted{
		SessionID: e.SessionID,
		Reason:    string(e.Result.Reason),
		Score:     e.Result.Score.StringFixed(2),
	})
}

// PublishPermissionsUpdated pushes every role its own row, so clients can refresh the
// features they show.
func (a *API) PublishPermissionsUpdated(ctx context.Context, e domain.EventPermissionsUpdated) error {
	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for role, set := range e.Permissions {
		eg.Go(func() error {
			return a.publishNotification(ctx, a.roleChannel(role), e.Name(), set)
		})
	}

	return eg.Wait()
}

func (a *API) userChannel(userID string) string {
	return fmt.Sprintf("%s:user:%s", a.prefix, userID)
}

func (a *API) roleChannel(role domain.Role) string {
	return fmt.Sprintf("%s:role:%s", a.prefix, role)
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	if a.redis == nil {
		return nil
	}

	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, channel, b).Err()
}
