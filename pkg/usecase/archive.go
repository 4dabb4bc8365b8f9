package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
)

// ArchivedAction is one JSON Lines entry of a year archive
type ArchivedAction struct {
	ID            types.ActionID `json:"id"`
	OwnerID       types.UserID   `json:"ownerId"`
	OwnerUsername string         `json:"ownerUsername,omitempty"`
	Data          model.Payload  `json:"data"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	CreationYear  int            `json:"creationYear"`
}

// ArchiveYear writes every record created in year to w as JSON Lines and
// returns the number of records written. Only past years can be archived
// because records of the current year are still mutable.
func (uc *UseCases) ArchiveYear(ctx context.Context, year int, w io.Writer) (int, error) {
	window := uc.Window()
	if current := window.Year(uc.clock()); year >= current {
		return 0, reject(ErrValidation,
			fmt.Sprintf("Cannot archive %d: only years before %d are immutable", year, current),
			goerr.V("year", year))
	}

	users, err := uc.repo.User().List(ctx)
	if err != nil {
		return 0, unavailable(err, "failed to list users")
	}
	names := make(map[types.UserID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	from, before := window.Range(year)
	filter := interfaces.ActionFilter{CreatedFrom: from, CreatedBefore: before}
	enc := json.NewEncoder(w)

	written := 0
	for offset := 0; ; offset += scanPageSize {
		actions, err := uc.repo.Action().List(ctx, filter, interfaces.Page{Offset: offset, Limit: scanPageSize})
		if err != nil {
			return written, unavailable(err, "failed to list actions", goerr.V("year", year), goerr.V("offset", offset))
		}

		for _, a := range actions {
			entry := ArchivedAction{
				ID:            a.ID,
				OwnerID:       a.OwnerID,
				OwnerUsername: names[a.OwnerID],
				Data:          a.Data,
				CreatedAt:     a.CreatedAt,
				UpdatedAt:     a.UpdatedAt,
				CreationYear:  year,
			}
			if err := enc.Encode(&entry); err != nil {
				return written, goerr.Wrap(err, "failed to write archive entry", goerr.V(ActionIDKey, a.ID))
			}
			written++
		}

		if len(actions) < scanPageSize {
			break
		}
	}

	logging.From(ctx).Info("year archived", "year", year, "actions", written)
	return written, nil
}
