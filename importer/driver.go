package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goldenstat/goldenstat/legparse"
	"github.com/goldenstat/goldenstat/models"
	"github.com/goldenstat/goldenstat/resolve"
)

// Store is the persistence surface the driver needs. *store.Store satisfies
// it; tests use a fake.
type Store interface {
	GetOrCreateTournament(ctx context.Context, t *models.Tournament) (*models.Tournament, error)
	UpsertParticipant(ctx context.Context, p *models.Participant) (int, error)
	LinkParticipantPlayer(ctx context.Context, participantID, playerID int) error
	EnsureMatch(ctx context.Context, m *models.Match) (*models.Match, error)
	MatchesNeedingDetail(ctx context.Context, tournamentID int) ([]models.Match, error)
	MarkDetailState(ctx context.Context, matchID int, state string) error
	SaveMatchDetail(ctx context.Context, matchID int, legs []legparse.Leg) error
	GetOrCreatePlayer(ctx context.Context, name string) (*models.Player, error)
	CreateOverride(ctx context.Context, o *models.PlayerOverride) error
	AddPendingReview(ctx context.Context, r *models.PendingReview) error
	ResolverSnapshot(ctx context.Context, tournamentID int) (*resolve.ResolverContext, error)
}

// Options tune a driver. FetchDelay paces detail fetches; zero disables
// pacing (tests). ReviewThreshold is the minimum confidence a resolution
// needs to be applied without review.
type Options struct {
	FetchDelay      time.Duration
	StartScore      int
	ReviewThreshold int
}

// Stats summarizes one import run.
type Stats struct {
	Participants int
	Players      int
	Matches      int
	Details      int
	Legs         int
	Reviews      int
	Skipped      int
	FetchErrors  int
}

// Driver walks one tournament from the source into the store. Every write is
// an upsert keyed on source identifiers, so running the same tournament
// twice is a no-op apart from refreshed summaries and retried details.
type Driver struct {
	store    Store
	source   Source
	resolver *resolve.Resolver
	clubs    *resolve.ClubMap
	limiter  *rate.Limiter
	log      *zap.Logger
	opts     Options
}

func New(st Store, src Source, res *resolve.Resolver, clubs *resolve.ClubMap, log *zap.Logger, opts Options) *Driver {
	if opts.StartScore == 0 {
		opts.StartScore = 501
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if opts.FetchDelay > 0 {
		lim = rate.NewLimiter(rate.Every(opts.FetchDelay), 1)
	}
	return &Driver{store: st, source: src, resolver: res, clubs: clubs, limiter: lim, log: log, opts: opts}
}

// ImportTournament runs the full reconciliation for one tdid: tournament
// header, entries with identity resolution, phase matches derived from the
// bracket tables, then the detail pass for every match not yet complete.
func (d *Driver) ImportTournament(ctx context.Context, tdid string) (*Stats, error) {
	data, err := d.source.Tournament(ctx, tdid)
	if err != nil {
		return nil, fmt.Errorf("fetch tournament %s: %w", tdid, err)
	}

	startScore := data.RRSetting.StartScore
	if startScore == 0 {
		startScore = d.opts.StartScore
	}

	t := &models.Tournament{
		TDID:       tdid,
		Title:      strings.TrimSpace(data.Title),
		Status:     data.Status,
		TeamGames:  data.TeamGames == 1,
		LGID:       data.LGID,
		StartScore: startScore,
	}
	if data.TDate > 0 {
		date := time.Unix(data.TDate, 0).UTC()
		t.TournamentDate = &date
	}
	t, err = d.store.GetOrCreateTournament(ctx, t)
	if err != nil {
		return nil, err
	}
	log := d.log.With(zap.String("tdid", tdid), zap.Int("tournament_id", t.ID))
	log.Info("importing tournament", zap.String("title", t.Title))

	rc, err := d.store.ResolverSnapshot(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	participantIDs := make(map[string]int, len(data.EntryList))
	for _, e := range data.EntryList {
		pid, err := d.importEntry(ctx, rc, t, e, stats)
		if err != nil {
			return stats, err
		}
		participantIDs[e.TPID] = pid
	}

	if err := d.importGroupPhase(ctx, t, data.RRTable, data.RRResult, participantIDs, stats); err != nil {
		return stats, err
	}
	if err := d.importKnockout(ctx, t, models.PhaseKnockout, data.TTable, data.TResult, participantIDs, stats); err != nil {
		return stats, err
	}
	if err := d.importKnockout(ctx, t, models.PhaseSecondary, data.S2Table, data.S2Result, participantIDs, stats); err != nil {
		return stats, err
	}

	if err := d.importDetails(ctx, t, stats); err != nil {
		return stats, err
	}

	log.Info("tournament imported",
		zap.Int("participants", stats.Participants),
		zap.Int("matches", stats.Matches),
		zap.Int("details", stats.Details),
		zap.Int("fetchErrors", stats.FetchErrors),
		zap.Int("reviews", stats.Reviews))
	return stats, nil
}

// importEntry upserts one entry-list row and links it to resolved canonical
// players. Doubles entries resolve each half separately.
func (d *Driver) importEntry(ctx context.Context, rc *resolve.ResolverContext, t *models.Tournament, e Entry, stats *Stats) (int, error) {
	rawName := strings.TrimSpace(e.Name)
	clubRaw, _ := resolve.ClubQualifier(rawName)
	club := ""
	if clubRaw != "" {
		club = d.clubs.Standardize(clubRaw)
	}

	pid, err := d.store.UpsertParticipant(ctx, &models.Participant{
		TournamentID: t.ID,
		TPID:         e.TPID,
		Name:         rawName,
		Club:         club,
		StartScore:   e.StartScore,
	})
	if err != nil {
		return 0, err
	}
	stats.Participants++

	// Doubles entries name both players joined by " & ".
	names := strings.Split(rawName, " & ")
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		playerID, linked, err := d.resolveEntryPlayer(ctx, rc, t, name, clubRaw, stats)
		if err != nil {
			return 0, err
		}
		if !linked {
			continue
		}
		if err := d.store.LinkParticipantPlayer(ctx, pid, playerID); err != nil {
			return 0, err
		}
		stats.Players++
	}
	return pid, nil
}

// resolveEntryPlayer materializes one resolution decision. Decisions that
// resolve to an existing player under a differing raw spelling are recorded
// as tournament overrides so later runs short-circuit on step two. Decisions
// below the threshold, and vetoed ones, are queued for review and the
// participant is left unlinked for now.
func (d *Driver) resolveEntryPlayer(ctx context.Context, rc *resolve.ResolverContext, t *models.Tournament, rawName, teamName string, stats *Stats) (int, bool, error) {
	dec, err := d.resolver.Resolve(ctx, rc, rawName, teamName)
	if err != nil {
		return 0, false, err
	}
	if !dec.AutoApply(d.opts.ReviewThreshold) {
		if err := d.queueReview(ctx, t, rawName, teamName, dec); err != nil {
			return 0, false, err
		}
		stats.Reviews++
		return 0, false, nil
	}

	switch dec.Action {
	case resolve.CreateNew, resolve.CreateClubVariant:
		p, err := d.store.GetOrCreatePlayer(ctx, dec.ProposedName)
		if err != nil {
			return 0, false, err
		}
		if err := d.recordOverride(ctx, t, rawName, p, dec); err != nil {
			return 0, false, err
		}
		return p.ID, true, nil
	case resolve.ExistingOverride:
		// Already on record; no new override row.
		return dec.Player.ID, true, nil
	default:
		if err := d.recordOverride(ctx, t, rawName, dec.Player, dec); err != nil {
			return 0, false, err
		}
		return dec.Player.ID, true, nil
	}
}

// recordOverride persists a (tournament, raw name) -> player mapping when the
// raw spelling differs from the canonical one.
func (d *Driver) recordOverride(ctx context.Context, t *models.Tournament, rawName string, p *models.Player, dec resolve.Decision) error {
	if rawName == p.Name {
		return nil
	}
	return d.store.CreateOverride(ctx, &models.PlayerOverride{
		TournamentID:     t.ID,
		RawName:          rawName,
		ResolvedPlayerID: p.ID,
		Confidence:       dec.Confidence,
		Reason:           dec.Reason,
		Source:           "import",
	})
}

func (d *Driver) queueReview(ctx context.Context, t *models.Tournament, rawName, teamName string, dec resolve.Decision) error {
	r := &models.PendingReview{
		TournamentID: t.ID,
		RawName:      rawName,
		Club:         teamName,
		Action:       dec.Action.String(),
		Confidence:   dec.Confidence,
		Reason:       dec.Reason,
	}
	if dec.Player != nil {
		id := dec.Player.ID
		r.CandidateID = &id
	}
	d.log.Warn("resolution needs review",
		zap.String("raw_name", rawName),
		zap.String("action", dec.Action.String()),
		zap.Int("confidence", dec.Confidence),
		zap.String("reason", dec.Reason))
	return d.store.AddPendingReview(ctx, r)
}

// importGroupPhase materializes round-robin matches. Every unordered pair
// within a group is a potential match; it exists only if either direction
// appears in the result map. Result-map keys that are not pairs from the
// group table are ignored.
func (d *Driver) importGroupPhase(ctx context.Context, t *models.Tournament, table [][]string, results []ResultMap, participantIDs map[string]int, stats *Stats) error {
	for gi, group := range table {
		if gi >= len(results) {
			break
		}
		res := results[gi]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if err := d.ensurePhaseMatch(ctx, t, models.PhaseGroup, gi, group[i], group[j], res, participantIDs, stats); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// importKnockout materializes bracket matches: each round's table lists slots
// in pair order, an empty slot is a bye, and a final round consisting of a
// single slot is the champion marker, not a match.
func (d *Driver) importKnockout(ctx context.Context, t *models.Tournament, phase string, table [][]string, results []ResultMap, participantIDs map[string]int, stats *Stats) error {
	for ri, round := range table {
		if ri >= len(results) {
			break
		}
		res := results[ri]
		for i := 0; i+1 < len(round); i += 2 {
			tpid1, tpid2 := round[i], round[i+1]
			if tpid1 == "" || tpid2 == "" {
				stats.Skipped++
				continue
			}
			if err := d.ensurePhaseMatch(ctx, t, phase, ri, tpid1, tpid2, res, participantIDs, stats); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Driver) ensurePhaseMatch(ctx context.Context, t *models.Tournament, phase string, index int, tpid1, tpid2 string, res ResultMap, participantIDs map[string]int, stats *Stats) error {
	r1, ok1 := lookupResult(res, tpid1, tpid2)
	r2, ok2 := lookupResult(res, tpid2, tpid1)
	if !ok1 && !ok2 {
		return nil // pairing never played
	}
	p1, ok := participantIDs[tpid1]
	if !ok {
		return fmt.Errorf("match references unknown tpid %s", tpid1)
	}
	p2, ok := participantIDs[tpid2]
	if !ok {
		return fmt.Errorf("match references unknown tpid %s", tpid2)
	}

	m := &models.Match{
		TournamentID:   t.ID,
		Phase:          phase,
		PhaseIndex:     index,
		Participant1ID: p1,
		Participant2ID: p2,
		P1LegsWon:      r1.LegsWon,
		P2LegsWon:      r2.LegsWon,
		P1Average:      r1.Average,
		P2Average:      r2.Average,
		TMID:           fmt.Sprintf("%s_%s_%d_%s_%s", t.TDID, phase, index, tpid1, tpid2),
	}
	if _, err := d.store.EnsureMatch(ctx, m); err != nil {
		return err
	}
	stats.Matches++
	return nil
}

func lookupResult(res ResultMap, a, b string) (PhaseResult, bool) {
	inner, ok := res[a]
	if !ok {
		return PhaseResult{}, false
	}
	r, ok := inner[b]
	return r, ok
}

// importDetails fetches and decodes throw data for every match still lacking
// it. Fetches are rate limited; an empty payload is retried once under the
// reversed participant order before the match is marked as having no detail.
// Malformed payloads are logged and left pending so the next run retries.
func (d *Driver) importDetails(ctx context.Context, t *models.Tournament, stats *Stats) error {
	matches, err := d.store.MatchesNeedingDetail(ctx, t.ID)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		sets, err := d.fetchSetData(ctx, m.TMID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A transport failure on one match must not sink the run; the
			// match stays pending and the next run retries it.
			d.log.Error("detail fetch failed",
				zap.String("tmid", m.TMID), zap.Error(err))
			stats.FetchErrors++
			continue
		}
		if len(sets) == 0 {
			if err := d.store.MarkDetailState(ctx, m.ID, models.DetailNone); err != nil {
				return err
			}
			continue
		}

		legs, err := d.decodeLegs(sets, t.StartScore)
		if err != nil {
			var malformed *legparse.MalformedError
			if errors.As(err, &malformed) {
				d.log.Error("malformed detail payload",
					zap.String("tmid", m.TMID), zap.Error(err))
				stats.Skipped++
				continue
			}
			return err
		}
		if err := d.store.SaveMatchDetail(ctx, m.ID, legs); err != nil {
			return err
		}
		stats.Details++
		stats.Legs += len(legs)
	}
	return nil
}

func (d *Driver) fetchSetData(ctx context.Context, tmid string) ([]SetData, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	sets, err := d.source.SetData(ctx, tmid)
	if err != nil {
		return nil, err
	}
	if len(sets) > 0 {
		return sets, nil
	}
	// Some matches are stored under the reversed participant order.
	reversed, ok := reverseTMID(tmid)
	if !ok {
		return nil, nil
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return d.source.SetData(ctx, reversed)
}

func (d *Driver) decodeLegs(sets []SetData, startScore int) ([]legparse.Leg, error) {
	var legs []legparse.Leg
	for _, set := range sets {
		for _, raw := range set.LegData {
			if !raw.Complete() {
				continue
			}
			leg, err := legparse.ParseLeg(raw, startScore)
			if err != nil {
				return nil, err
			}
			legs = append(legs, leg)
		}
	}
	return legs, nil
}

// reverseTMID swaps the two trailing tpid segments of a match identifier.
func reverseTMID(tmid string) (string, bool) {
	j := strings.LastIndex(tmid, "_")
	if j < 0 {
		return "", false
	}
	i := strings.LastIndex(tmid[:j], "_")
	if i < 0 {
		return "", false
	}
	return tmid[:i] + "_" + tmid[j+1:] + "_" + tmid[i+1:j], true
}
