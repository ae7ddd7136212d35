package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goldenstat/goldenstat/models"
)

// PlayerHit is a case-insensitive name match with the identity's recorded
// activity volume, used to break ties between case variants.
type PlayerHit struct {
	models.Player
	Participations int
}

// Lookup is what the resolver queries live from the store.
type Lookup interface {
	// PlayerByName returns the identity with this exact (case-sensitive)
	// name, or nil.
	PlayerByName(ctx context.Context, name string) (*models.Player, error)
	// FoldedMatches returns every identity whose name equals the given one
	// case-insensitively, ordered by participation volume descending.
	FoldedMatches(ctx context.Context, name string) ([]PlayerHit, error)
}

// AliasEntry is one preloaded alias edge, already chain-followed to its sink.
type AliasEntry struct {
	Source models.Player
	Sink   models.Player
}

// OverrideEntry is one preloaded tournament-scoped override.
type OverrideEntry struct {
	Player     models.Player
	Confidence int
}

// ClubVariant is one club-qualified identity sharing a base name.
type ClubVariant struct {
	Player models.Player
	Club   string
}

// ResolverContext carries the per-run state the pipeline consults: aliases,
// this tournament's overrides and the club-separated variant table. Built
// once per run and passed explicitly – there is no ambient global state.
type ResolverContext struct {
	TournamentID int
	Aliases      map[string]AliasEntry    // NameKey(alias name) -> entry
	Overrides    map[string]OverrideEntry // NameKey(raw name) -> entry
	Variants     map[string][]ClubVariant // NameKey(base name) -> variants
}

// NewResolverContext returns an empty context for the given tournament.
func NewResolverContext(tournamentID int) *ResolverContext {
	return &ResolverContext{
		TournamentID: tournamentID,
		Aliases:      map[string]AliasEntry{},
		Overrides:    map[string]OverrideEntry{},
		Variants:     map[string][]ClubVariant{},
	}
}

// variantsFor finds club-separated variants for an incoming name: an exact
// base-name match first, then a first-name prefix match ("Mats" matching base
// "Mats Andersson") for short single-token names. A prefix that matches more
// than one base ("Peter" against both "Peter Svensson" and "Peter Karlsson")
// is reported as ambiguous; callers must not pick between the bases.
func (rc *ResolverContext) variantsFor(name string) (variants []ClubVariant, exactBase, ambiguous bool) {
	key := NameKey(name)
	if v, ok := rc.Variants[key]; ok {
		return v, true, false
	}
	if !strings.Contains(key, " ") && len(key) >= 3 && len(key) <= 15 {
		var bases []string
		for base := range rc.Variants {
			if strings.HasPrefix(base, key+" ") {
				bases = append(bases, base)
			}
		}
		sort.Strings(bases)
		for _, base := range bases {
			variants = append(variants, rc.Variants[base]...)
		}
		return variants, false, len(bases) > 1
	}
	return nil, false, false
}

// Resolver runs the resolution pipeline. The step order is load-bearing:
// changing it changes outcomes (an exact match must beat an alias, an alias
// must beat a case variant, and so on).
type Resolver struct {
	store    Lookup
	clubs    *ClubMap
	overlaps *OverlapDetector
}

// NewResolver builds a resolver over the given store, club table and overlap
// detector.
func NewResolver(store Lookup, clubs *ClubMap, overlaps *OverlapDetector) *Resolver {
	return &Resolver{store: store, clubs: clubs, overlaps: overlaps}
}

// Resolve decides which identity the raw name refers to, given the team/club
// context it arrived with. It never writes; callers materialize the decision.
// Identical inputs against identical store state always yield the same
// decision.
func (r *Resolver) Resolve(ctx context.Context, rc *ResolverContext, rawName, teamName string) (Decision, error) {
	name := cleanUnicode(rawName)
	if name == "" {
		return Decision{Action: NeedsReview, Reason: "empty name"}, nil
	}
	club := ""
	if teamName != "" {
		club = r.clubs.Standardize(teamName)
	}

	// 1. Exact case-sensitive match.
	if p, err := r.store.PlayerByName(ctx, name); err != nil {
		return Decision{}, err
	} else if p != nil {
		return Decision{Action: ExactMatch, Player: p, Confidence: 100, Reason: "exact name match"}, nil
	}

	// 2. Tournament-scoped override recorded by an earlier import.
	if ov, ok := rc.Overrides[NameKey(name)]; ok {
		p := ov.Player
		return Decision{
			Action:     ExistingOverride,
			Player:     &p,
			Confidence: ov.Confidence,
			Reason:     fmt.Sprintf("override for this tournament: %s -> %s", name, p.Name),
		}, nil
	}

	// 3. Club-qualified variant whose club matches the standardized context.
	// A first-name prefix that fits several bases, or several variants
	// matching the same club, is never auto-picked.
	variants, exactBase, ambiguous := rc.variantsFor(name)
	if club != "" {
		var clubHits []ClubVariant
		for _, v := range variants {
			if r.clubs.SameClub(v.Club, club) {
				clubHits = append(clubHits, v)
			}
		}
		if len(clubHits) == 1 && !ambiguous {
			p := clubHits[0].Player
			return Decision{
				Action:     ClubSpecific,
				Player:     &p,
				Confidence: 95,
				Reason:     fmt.Sprintf("club-specific variant: %s -> %s", name, p.Name),
			}, nil
		}
		if len(clubHits) > 0 {
			return Decision{
				Action:     NeedsReview,
				Confidence: 0,
				Reason: fmt.Sprintf("%v: %s matches several club-separated identities for %s",
					ErrAmbiguousIdentity, name, club),
			}, nil
		}
	}

	// 4. Global alias, chain-followed to its sink. A high-severity temporal
	// overlap between source and sink vetoes the automatic use.
	if a, ok := rc.Aliases[NameKey(name)]; ok {
		sev, err := r.overlaps.PairSeverity(ctx, a.Source, a.Sink)
		if err != nil {
			return Decision{}, err
		}
		sink := a.Sink
		if sev == SeverityHigh {
			return Decision{
				Action:     NeedsReview,
				Player:     &sink,
				Confidence: 90,
				Reason: fmt.Sprintf("%v: alias %s -> %s has %s overlap",
					ErrAmbiguousIdentity, a.Source.Name, sink.Name, sev),
			}, nil
		}
		return Decision{
			Action:     ExistingAlias,
			Player:     &sink,
			Confidence: 90,
			Reason:     fmt.Sprintf("alias: %s -> %s", name, sink.Name),
		}, nil
	}

	// 5. Case variants. A single candidate is taken directly; with several,
	// the one with the largest recorded activity volume wins.
	hits, err := r.store.FoldedMatches(ctx, name)
	if err != nil {
		return Decision{}, err
	}
	caseHits := hits[:0:0]
	for _, h := range hits {
		if h.Name != name {
			caseHits = append(caseHits, h)
		}
	}
	if len(caseHits) == 1 {
		p := caseHits[0].Player
		return Decision{
			Action:     CaseVariation,
			Player:     &p,
			Confidence: 85,
			Reason:     fmt.Sprintf("case variation: %s -> %s", name, p.Name),
		}, nil
	}
	if len(caseHits) > 1 {
		best := caseHits[0]
		for _, h := range caseHits[1:] {
			if h.Participations > best.Participations {
				best = h
			}
		}
		p := best.Player
		return Decision{
			Action:     CaseVariationPrioritized,
			Player:     &p,
			Confidence: 88,
			Reason: fmt.Sprintf("multiple case variants, %s has %d participations",
				p.Name, best.Participations),
		}, nil
	}

	// 6. Hyphen/space placement variants of the same tokens.
	for _, variant := range []string{
		strings.ReplaceAll(name, " ", "-"),
		strings.ReplaceAll(name, "-", " "),
	} {
		if variant == name {
			continue
		}
		p, err := r.store.PlayerByName(ctx, variant)
		if err != nil {
			return Decision{}, err
		}
		if p != nil {
			return Decision{
				Action:     HyphenSpaceVariation,
				Player:     p,
				Confidence: 80,
				Reason:     fmt.Sprintf("hyphen/space variation: %s -> %s", name, p.Name),
			}, nil
		}
	}

	// 7. Known base name with club-separated variants but no variant for this
	// club: propose a new club variant, unless the club already explains one
	// of the existing variants' activity.
	if exactBase && len(variants) > 0 {
		if club == "" {
			return Decision{
				Action:     NeedsReview,
				Confidence: 0,
				Reason:     fmt.Sprintf("%s has club-separated variants but no club context given", name),
			}, nil
		}
		conflict, err := r.overlaps.ClubConflictsWithBase(ctx, name, club)
		if err != nil {
			return Decision{}, err
		}
		proposed := fmt.Sprintf("%s (%s)", NormalizeName(name), club)
		if conflict {
			return Decision{
				Action:       NeedsReview,
				ProposedName: proposed,
				Confidence:   90,
				Reason: fmt.Sprintf("%v: club %s already active for an existing %s variant",
					ErrAmbiguousIdentity, club, name),
			}, nil
		}
		return Decision{
			Action:       CreateClubVariant,
			ProposedName: proposed,
			Confidence:   90,
			Reason:       fmt.Sprintf("new club variant for %s", club),
		}, nil
	}

	// 8. Nothing matched.
	return Decision{
		Action:       CreateNew,
		ProposedName: NormalizeName(name),
		Confidence:   0,
		Reason:       "no match found",
	}, nil
}
