package filtering

import (
	"context"
	"strconv"

	"github.com/spigell/skillmatch/internal/market"
	"github.com/spigell/skillmatch/internal/matching"
)

type matchFilter struct {
	seeker matching.Seeker
}

// NewMatch scores every job against seeker, drops the ones under the
// recommendation thresholds and orders the rest by score.
func NewMatch(seeker matching.Seeker) Filter {
	return &matchFilter{seeker: seeker}
}

func (f *matchFilter) Name() string { return "match" }

func (f *matchFilter) Disable(string) {}

func (f *matchFilter) IsEnabled() bool { return true }

func (f *matchFilter) Validate() error { return nil }

func (f *matchFilter) Apply(_ context.Context, jobs *market.Jobs) (*market.Jobs, Step, error) {
	initial := jobs.Len()

	recs := matching.Recommend(f.seeker, jobs.Items)
	ranked := make([]*market.Job, 0, len(recs))
	for _, rec := range recs {
		rec.Job.Match = &market.Match{
			Score:    rec.Score,
			RawScore: rec.RawScore,
			Boosted:  rec.Boosted,
		}
		ranked = append(ranked, rec.Job)
	}
	jobs.Items = ranked

	return jobs, Step{Initial: initial, Dropped: initial - jobs.Len(), Left: jobs.Len()}, nil
}

func (f *matchFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true, Details: map[string]string{
		"pre_filter_score": strconv.Itoa(matching.PreFilterScore),
		"minimum_score":    strconv.Itoa(matching.MinimumScore),
		"skills":           strconv.Itoa(len(f.seeker.Skills)),
	}}
}
