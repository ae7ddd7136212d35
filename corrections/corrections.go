// Package corrections applies the versioned correction log: a YAML file of
// named, structured identity fixes checked into the repo and re-applied
// before every import run. Each entry is applied exactly once; the
// corrections table records what already ran.
package corrections

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/goldenstat/goldenstat/models"
	"github.com/goldenstat/goldenstat/resolve"
	"github.com/goldenstat/goldenstat/store"
)

// Op kinds.
const (
	KindCreateAlias       = "create-alias"
	KindRepointOverride   = "repoint-override"
	KindMergeParticipants = "merge-participants"
)

// Op is one entry of the log. Name must be unique across the file's history;
// it is the idempotency key, so editing an applied op has no effect.
type Op struct {
	Name string `mapstructure:"name"`
	Kind string `mapstructure:"kind"`

	// create-alias
	AliasName     string `mapstructure:"alias_name"`
	CanonicalName string `mapstructure:"canonical_name"`
	Reason        string `mapstructure:"reason"`

	// repoint-override
	TournamentTDID string `mapstructure:"tournament_tdid"`
	RawName        string `mapstructure:"raw_name"`
	PlayerName     string `mapstructure:"player_name"`

	// merge-participants
	FromPlayer string `mapstructure:"from_player"`
	IntoPlayer string `mapstructure:"into_player"`
}

// Load reads the corrections file. A missing file is an empty log.
func Load(path string) ([]Op, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("corrections: read %s: %w", path, err)
	}
	var ops []Op
	if err := v.UnmarshalKey("corrections", &ops); err != nil {
		return nil, fmt.Errorf("corrections: parse %s: %w", path, err)
	}
	for i, op := range ops {
		if err := op.validate(); err != nil {
			return nil, fmt.Errorf("corrections: entry %d: %w", i, err)
		}
	}
	return ops, nil
}

func (o Op) validate() error {
	if o.Name == "" {
		return errors.New("missing name")
	}
	switch o.Kind {
	case KindCreateAlias:
		if o.AliasName == "" || o.CanonicalName == "" {
			return fmt.Errorf("%s: alias_name and canonical_name required", o.Name)
		}
	case KindRepointOverride:
		if o.TournamentTDID == "" || o.RawName == "" || o.PlayerName == "" {
			return fmt.Errorf("%s: tournament_tdid, raw_name and player_name required", o.Name)
		}
	case KindMergeParticipants:
		if o.FromPlayer == "" || o.IntoPlayer == "" {
			return fmt.Errorf("%s: from_player and into_player required", o.Name)
		}
	default:
		return fmt.Errorf("%s: unknown kind %q", o.Name, o.Kind)
	}
	return nil
}

// Store is the persistence surface the applier needs. *store.Store
// satisfies it; tests use a fake.
type Store interface {
	CorrectionApplied(ctx context.Context, name string) (bool, error)
	MarkCorrectionApplied(ctx context.Context, name, kind string) error
	PlayerByName(ctx context.Context, name string) (*models.Player, error)
	TournamentByTDID(ctx context.Context, tdid string) (*models.Tournament, error)
	CreateAlias(ctx context.Context, aliasID, canonicalID int, reason string) (*models.PlayerAlias, error)
	RepointOverride(ctx context.Context, tournamentID int, rawName string, playerID int, reason string) error
	AddPendingReview(ctx context.Context, r *models.PendingReview) error
}

// Applier runs the log against the store. Merging ops go through the same
// overlap check the curation API applies before an alias is written.
type Applier struct {
	store    Store
	overlaps *resolve.OverlapDetector
	log      *zap.Logger
}

func NewApplier(st Store, overlaps *resolve.OverlapDetector, log *zap.Logger) *Applier {
	return &Applier{store: st, overlaps: overlaps, log: log}
}

// Apply runs every op not yet recorded as applied. An op that is rejected by
// an invariant (alias cycle, high-severity overlap, unknown player) is queued
// for review and NOT marked applied, so fixing the log re-runs it.
func (a *Applier) Apply(ctx context.Context, ops []Op) error {
	for _, op := range ops {
		done, err := a.store.CorrectionApplied(ctx, op.Name)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		if err := a.applyOne(ctx, op); err != nil {
			if errors.Is(err, store.ErrAliasCycle) || errors.Is(err, resolve.ErrAmbiguousIdentity) {
				a.log.Warn("correction rejected", zap.String("name", op.Name), zap.Error(err))
				if qErr := a.queueRejected(ctx, op, err); qErr != nil {
					return qErr
				}
				continue
			}
			return fmt.Errorf("correction %s: %w", op.Name, err)
		}
		if err := a.store.MarkCorrectionApplied(ctx, op.Name, op.Kind); err != nil {
			return err
		}
		a.log.Info("correction applied", zap.String("name", op.Name), zap.String("kind", op.Kind))
	}
	return nil
}

func (a *Applier) applyOne(ctx context.Context, op Op) error {
	switch op.Kind {
	case KindCreateAlias:
		return a.createAlias(ctx, op)
	case KindRepointOverride:
		return a.repointOverride(ctx, op)
	case KindMergeParticipants:
		return a.mergeParticipants(ctx, op)
	}
	return fmt.Errorf("unknown kind %q", op.Kind)
}

func (a *Applier) createAlias(ctx context.Context, op Op) error {
	alias, err := a.mustPlayer(ctx, op.AliasName)
	if err != nil {
		return err
	}
	canonical, err := a.mustPlayer(ctx, op.CanonicalName)
	if err != nil {
		return err
	}
	return a.checkedAlias(ctx, alias, canonical, op.Reason)
}

// checkedAlias writes an alias edge after the overlap check; two identities
// with high-severity overlapping activity are never merged automatically.
func (a *Applier) checkedAlias(ctx context.Context, source, canonical *models.Player, reason string) error {
	sev, err := a.overlaps.PairSeverity(ctx, *source, *canonical)
	if err != nil {
		return err
	}
	if sev == resolve.SeverityHigh {
		return fmt.Errorf("%w: %s and %s have %s overlap",
			resolve.ErrAmbiguousIdentity, source.Name, canonical.Name, sev)
	}
	_, err = a.store.CreateAlias(ctx, source.ID, canonical.ID, reason)
	return err
}

func (a *Applier) repointOverride(ctx context.Context, op Op) error {
	t, err := a.store.TournamentByTDID(ctx, op.TournamentTDID)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("unknown tournament %s", op.TournamentTDID)
	}
	p, err := a.mustPlayer(ctx, op.PlayerName)
	if err != nil {
		return err
	}
	return a.store.RepointOverride(ctx, t.ID, op.RawName, p.ID, op.Reason)
}

// mergeParticipants aliases one identity into another, which re-points its
// overrides and participant links in the same transaction.
func (a *Applier) mergeParticipants(ctx context.Context, op Op) error {
	from, err := a.mustPlayer(ctx, op.FromPlayer)
	if err != nil {
		return err
	}
	into, err := a.mustPlayer(ctx, op.IntoPlayer)
	if err != nil {
		return err
	}
	return a.checkedAlias(ctx, from, into, op.Reason)
}

func (a *Applier) mustPlayer(ctx context.Context, name string) (*models.Player, error) {
	p, err := a.store.PlayerByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("unknown player %q", name)
	}
	return p, nil
}

func (a *Applier) queueRejected(ctx context.Context, op Op, cause error) error {
	name := op.AliasName
	if name == "" {
		name = op.FromPlayer
	}
	return a.store.AddPendingReview(ctx, &models.PendingReview{
		RawName: name,
		Action:  op.Kind,
		Reason:  fmt.Sprintf("correction %s rejected: %v", op.Name, cause),
	})
}
