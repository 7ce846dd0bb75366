package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/manifoldco/promptui"

	"github.com/spigell/skillmatch/internal/market"
)

const dateLayout = "2006-01-02 15:04"

var out io.Writer = os.Stdout

func newTable(headers ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	return w
}

func row(w io.Writer, cells ...string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

func printJobs(jobs []*market.Job) {
	w := newTable("ID", "TITLE", "COMPANY", "LOCATION", "TYPE", "MATCH")
	for _, job := range jobs {
		row(w, job.ID, job.Title, job.CompanyName, job.Location, job.JobType, matchLabel(job.Match))
	}
	w.Flush()
}

func printJob(job *market.Job, score int) {
	fmt.Fprintf(out, "%s\n%s", job.Title, job.CompanyName)
	if job.Location != "" {
		fmt.Fprintf(out, " / %s", job.Location)
	}
	fmt.Fprintln(out)

	fields := [][2]string{
		{"ID", job.ID},
		{"Status", string(job.Status)},
		{"Type", job.JobType},
		{"Salary", job.SalaryRange},
		{"Skills", strings.Join(job.Skills, ", ")},
		{"Requirements", strings.Join(job.Requirements, "; ")},
		{"Benefits", strings.Join(job.Benefits, "; ")},
		{"Posted", formatTime(job.CreatedAt)},
	}
	if score >= 0 {
		fields = append(fields, [2]string{"Match", strconv.Itoa(score) + "%"})
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, f := range fields {
		if f[1] != "" {
			row(w, f[0]+":", f[1])
		}
	}
	w.Flush()

	if job.Description != "" {
		fmt.Fprintf(out, "\n%s\n", job.Description)
	}
}

func printProfile(p *market.Profile) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fields := [][2]string{
		{"ID", p.ID},
		{"Name", p.DisplayName()},
		{"Role", string(p.Role)},
		{"Headline", p.Headline},
		{"Skills", strings.Join(p.Skills, ", ")},
		{"Bio", p.Bio},
		{"Resume", p.ResumeURL},
		{"Avatar", p.AvatarURL},
	}
	if p.Preferences != nil {
		fields = append(fields, [2]string{"Job type", p.Preferences.JobType})
	}
	for _, f := range fields {
		if f[1] != "" {
			row(w, f[0]+":", f[1])
		}
	}
	w.Flush()
}

func printMessages(messages []*market.Message, selfID string) {
	for _, m := range messages {
		who := "them"
		if m.SenderID == selfID {
			who = "me"
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", formatTime(m.CreatedAt), who, m.Content)
	}
}

func matchLabel(m *market.Match) string {
	if m == nil {
		return ""
	}
	label := strconv.Itoa(m.Score) + "%"
	if m.Boosted {
		label += " *"
	}
	return label
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(dateLayout)
}

// ask prompts for a value unless it was already provided.
func ask(label, value string, secret bool) (string, error) {
	if strings.TrimSpace(value) != "" {
		return value, nil
	}

	prompt := promptui.Prompt{Label: label}
	if secret {
		prompt.Mask = '*'
	}
	return prompt.Run()
}

// splitList parses a comma separated flag value.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}
