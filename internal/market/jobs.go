package market

import "strings"

const (
	JobIDField      = "ID"
	JobCompanyField = "Company"
	JobTypeField    = "JobType"
)

type Jobs struct {
	Items []*Job
}

// NewJobs builds a collection, dropping nil rows and duplicated ids.
func NewJobs(items []*Job) *Jobs {
	seen := make(map[string]struct{}, len(items))
	unique := make([]*Job, 0, len(items))
	for _, job := range items {
		if job == nil {
			continue
		}
		if _, ok := seen[job.ID]; ok {
			continue
		}
		seen[job.ID] = struct{}{}
		unique = append(unique, job)
	}
	return &Jobs{Items: unique}
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) FindByID(id string) *Job {
	for _, job := range j.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

func (j *Jobs) IDs() []string {
	ids := make([]string, 0, len(j.Items))
	for _, job := range j.Items {
		ids = append(ids, job.ID)
	}
	return ids
}

func (job *Job) GetStringField(name string) string {
	switch name {
	case JobIDField:
		return job.ID
	case JobCompanyField:
		return job.CompanyName
	case JobTypeField:
		return job.JobType
	default:
		return ""
	}
}

// Exclude drops jobs whose field equals one of targets (case-insensitively) and
// returns the ids of the dropped jobs. Order of the remaining jobs is kept.
func (j *Jobs) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	var excluded []string
	kept := j.Items[:0]
	for _, job := range j.Items {
		if _, ok := set[strings.ToLower(strings.TrimSpace(job.GetStringField(name)))]; ok {
			excluded = append(excluded, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	j.Items = kept

	return excluded
}

// Keep drops every job whose field is not one of targets and returns the ids of the dropped jobs.
func (j *Jobs) Keep(name string, targets []string) []string {
	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	var excluded []string
	kept := j.Items[:0]
	for _, job := range j.Items {
		if _, ok := set[strings.ToLower(strings.TrimSpace(job.GetStringField(name)))]; !ok {
			excluded = append(excluded, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	j.Items = kept

	return excluded
}
