package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-refsync/internal/store"
	"github.com/MKhiriev/go-refsync/models"
)

// resolveConflicts asks for a decision on one set of conflicts and applies
// it in one transaction. On cancellation the field conflicts are queued and
// ErrUserCancelled is returned.
func (p *pass) resolveConflicts(ctx context.Context, conflicts []models.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	p.result.Conflicts += len(conflicts)

	sides, err := p.decide(ctx, conflicts)
	if err != nil {
		if !errors.Is(err, ErrUserCancelled) {
			return fmt.Errorf("resolve conflicts: %w", err)
		}
		p.log.Info().
			Str("func", "pass.resolveConflicts").
			Int("conflicts", len(conflicts)).
			Msg("conflict resolution cancelled")
		if qErr := p.queueUnresolved(ctx, conflicts); qErr != nil {
			return errors.Join(err, qErr)
		}
		return err
	}

	return p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
		for i, c := range conflicts {
			if err := p.applyResolution(ctx, repo, c, sides[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// decide returns the chosen side for every conflict, in order. Conflicts of
// a read-only library, conflicts after an "apply to remaining" decision and
// conflicts left without a resolution take the remote side.
func (p *pass) decide(ctx context.Context, conflicts []models.Conflict) ([]models.Side, error) {
	sides := make([]models.Side, len(conflicts))

	if p.applyAll != nil || !p.lib.Editable || p.resolver == nil {
		side := models.SideRemote
		if p.applyAll != nil {
			side = *p.applyAll
		}
		for i := range sides {
			sides[i] = side
		}
		return sides, nil
	}

	resolutions, err := p.resolver.Resolve(ctx, conflicts)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]models.Resolution, len(resolutions))
	for _, r := range resolutions {
		byKey[r.Key] = r
	}

	for i, c := range conflicts {
		if p.applyAll != nil {
			sides[i] = *p.applyAll
			continue
		}
		r, ok := byKey[c.Key]
		if !ok {
			continue
		}
		sides[i] = r.Choice
		if r.ApplyToRemaining {
			choice := r.Choice
			p.applyAll = &choice
		}
	}
	return sides, nil
}

func (p *pass) applyResolution(ctx context.Context, repo store.Repository, c models.Conflict, side models.Side) error {
	p.log.Debug().
		Str("func", "pass.applyResolution").
		Str("object_type", string(c.Type)).
		Str("object_key", c.Key).
		Str("kind", string(c.Kind)).
		Str("side", side.String()).
		Msg("conflict resolved")

	switch c.Kind {
	case models.ConflictFields:
		local, err := repo.GetObject(ctx, p.libraryID, c.Type, c.Key)
		if err != nil {
			return err
		}
		if side == models.SideRemote {
			return p.saveRemote(ctx, repo, c.Type, c.Key, c.RemoteVersion, c.Remote, &local)
		}
		return p.keepLocal(ctx, repo, local, local.Data, c.RemoteVersion, c.Remote)

	case models.ConflictRemoteDeletion:
		if side == models.SideRemote {
			return p.deleteLocal(ctx, repo, c.Type, []string{c.Key})
		}
		local, err := repo.GetObject(ctx, p.libraryID, c.Type, c.Key)
		if err != nil {
			return err
		}
		return p.recreate(ctx, repo, local)

	case models.ConflictLocalDeletion:
		if side == models.SideRemote {
			return p.saveRemote(ctx, repo, c.Type, c.Key, c.RemoteVersion, c.Remote, nil)
		}
		// the deletion stays in the log and is uploaded
		return nil

	default:
		return fmt.Errorf("unknown conflict kind %q", c.Kind)
	}
}

// queueUnresolved queues the keys of field conflicts so that the next pass
// fetches them again.
func (p *pass) queueUnresolved(ctx context.Context, conflicts []models.Conflict) error {
	byType := make(map[models.ObjectType][]string)
	for _, c := range conflicts {
		if c.Kind == models.ConflictFields {
			byType[c.Type] = append(byType[c.Type], c.Key)
		}
	}
	if len(byType) == 0 {
		return nil
	}
	return p.store.InTx(ctx, func(ctx context.Context, repo store.Repository) error {
		for t, keys := range byType {
			if err := repo.QueueObjects(ctx, p.libraryID, t, keys); err != nil {
				return err
			}
		}
		return nil
	})
}
