// Package matching scores how well a seeker fits a job. Everything here is pure.
package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/spigell/skillmatch/internal/market"
	"github.com/spigell/skillmatch/internal/utils"
)

const (
	// HeadlineBoost is added when the seeker headline and job title contain one another.
	HeadlineBoost = 15
	// TitleRelevanceFloor is the score a headline match lifts a weak boosted score to.
	TitleRelevanceFloor = 60
	// PreFilterScore is the raw score a job must reach before boosting is considered.
	PreFilterScore = 30
	// MinimumScore is the boosted score a job must reach to be recommended.
	MinimumScore = 40
	// MaxDisplayScore caps every score shown to a user.
	MaxDisplayScore = 98

	maxScore = 100
)

// Seeker is the part of a profile the engine reads.
type Seeker struct {
	Skills   []string
	Headline string
}

// SeekerFromProfile extracts the matching input of p.
func SeekerFromProfile(p *market.Profile) Seeker {
	if p == nil {
		return Seeker{}
	}
	return Seeker{Skills: p.Skills, Headline: p.Headline}
}

// Recommendation is a job that cleared both thresholds.
type Recommendation struct {
	Job      *market.Job
	Score    int
	RawScore int
	Boosted  bool
}

// RawScore is the skills score before the headline boost.
//
// With declared job skills it is the share of job skills the seeker has.
// Without them it is the share of seeker skills found in the job text.
func RawScore(seeker Seeker, job *market.Job) int {
	if job == nil {
		return 0
	}

	seekerSkills := utils.NormalizeSet(seeker.Skills)
	jobSkills := utils.NormalizeSet(job.Skills)

	if len(jobSkills) > 0 {
		have := make(map[string]struct{}, len(seekerSkills))
		for _, s := range seekerSkills {
			have[s] = struct{}{}
		}
		matched := 0
		for _, s := range jobSkills {
			if _, ok := have[s]; ok {
				matched++
			}
		}
		return percent(matched, len(jobSkills))
	}

	if len(seekerSkills) == 0 {
		return 0
	}

	text := jobText(job)
	matched := 0
	for _, s := range seekerSkills {
		if strings.Contains(text, s) {
			matched++
		}
	}
	return percent(matched, len(seekerSkills))
}

// HeadlineMatches reports whether headline and title contain one another, ignoring case.
// Blank values never match.
func HeadlineMatches(headline, title string) bool {
	headline = strings.ToLower(strings.TrimSpace(headline))
	title = strings.ToLower(strings.TrimSpace(title))
	if headline == "" || title == "" {
		return false
	}
	return strings.Contains(title, headline) || strings.Contains(headline, title)
}

// Boost applies the headline boost to raw.
func Boost(raw int, seeker Seeker, job *market.Job) (int, bool) {
	if job == nil || !HeadlineMatches(seeker.Headline, job.Title) {
		return raw, false
	}

	score := min(raw+HeadlineBoost, maxScore)
	if score < MinimumScore {
		score = TitleRelevanceFloor
	}
	return score, true
}

// Score is the display-only match percentage of a job listing.
// It applies the boost and the display cap but none of the recommendation thresholds.
func Score(seeker Seeker, job *market.Job) int {
	boosted, _ := Boost(RawScore(seeker, job), seeker, job)
	return min(boosted, MaxDisplayScore)
}

// Recommend ranks jobs for seeker. Jobs under PreFilterScore raw are dropped
// before boosting, jobs under MinimumScore after it. The result is sorted by
// score, highest first, keeping input order for ties.
func Recommend(seeker Seeker, jobs []*market.Job) []Recommendation {
	recs := make([]Recommendation, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}

		raw := RawScore(seeker, job)
		if raw < PreFilterScore {
			continue
		}

		boosted, applied := Boost(raw, seeker, job)
		if boosted < MinimumScore {
			continue
		}

		recs = append(recs, Recommendation{
			Job:      job,
			Score:    min(boosted, MaxDisplayScore),
			RawScore: raw,
			Boosted:  applied,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})

	return recs
}

func jobText(job *market.Job) string {
	parts := make([]string, 0, len(job.Requirements)+2)
	parts = append(parts, job.Title, job.Description)
	parts = append(parts, job.Requirements...)
	return strings.ToLower(strings.Join(parts, " "))
}

func percent(n, of int) int {
	if of == 0 {
		return 0
	}
	return int(math.Round(100 * float64(n) / float64(of)))
}
