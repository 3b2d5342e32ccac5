package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// Format selects the JSON layout written for every repository.
type Format string

const (
	// FormatFull keeps every classification field.
	FormatFull Format = "full"
	// FormatKnowledgeBase is the {text, metadata} layout the managed
	// knowledge base ingests.
	FormatKnowledgeBase Format = "bedrock"
)

const progressEvery = 100

// Record is one CSV row keyed by column name. Missing columns read as "".
type Record map[string]string

func (r Record) Get(column string) string {
	return r[column]
}

type RepoMetadata struct {
	Description           string `json:"description"`
	CreatedDate           string `json:"created_date"`
	LastModified          string `json:"last_modified"`
	Stars                 int    `json:"stars"`
	Forks                 int    `json:"forks"`
	SolutionType          string `json:"solution_type"`
	SolutionMarketing     string `json:"solution_marketing"`
	TechnicalCompetencies string `json:"technical_competencies"`
	SolutionCompetencies  string `json:"solution_competencies"`
	DeploymentTools       string `json:"deployment_tools"`
	DeploymentLevel       string `json:"deployment_level"`
	PrimaryLanguage       string `json:"primary_language"`
	AdditionalLanguages   string `json:"additional_languages"`
	Frameworks            string `json:"frameworks"`
	AWSServices           string `json:"aws_services"`
	Prerequisites         string `json:"prerequisites"`
	License               string `json:"license"`
	SetupTime             string `json:"setup_time"`
	CostRange             string `json:"cost_range"`
	CustomerProblems      string `json:"customer_problems"`
	USP                   string `json:"usp"`
	FreshnessStatus       string `json:"freshness_status"`
}

// RepoDocument is the full per-repository document.
type RepoDocument struct {
	Repository        string       `json:"repository"`
	URL               string       `json:"url"`
	SearchableContent string       `json:"searchable_content"`
	Metadata          RepoMetadata `json:"metadata"`
}

type KnowledgeBaseMetadata struct {
	Repository string `json:"repository"`
	URL        string `json:"url"`
}

type KnowledgeBaseDocument struct {
	Text     string                `json:"text"`
	Metadata KnowledgeBaseMetadata `json:"metadata"`
}

// Stats summarizes a conversion run.
type Stats struct {
	Processed int
	Failed    int
}

// ReadRecords parses a CSV whose first row names the columns.
func ReadRecords(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv has no header row")
		}
		return nil, fmt.Errorf("error reading csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading csv: %w", err)
		}

		rec := make(Record, len(header))
		for i, column := range header {
			if i < len(row) {
				rec[column] = row[i]
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

var searchableFields = []struct {
	label  string
	column string
}{
	{"Repository", "repository"},
	{"Description", "description"},
	{"Solution Type", "solution_type"},
	{"Primary Language", "primary_language"},
	{"AWS Services", "aws_services"},
	{"Technical Competencies", "technical_competencies"},
	{"Solution Competencies", "solution_competencies"},
	{"Deployment Tools", "deployment_tools"},
	{"Setup Time", "setup_time"},
	{"Cost Range", "cost_range"},
	{"Customer Problems", "customer_problems"},
	{"USP", "usp"},
	{"Prerequisites", "prerequisites"},
	{"License", "license"},
}

// BuildSearchableContent renders the text that gets embedded, one
// "Label: value" line per field. Additional languages and frameworks are only
// listed when present.
func BuildSearchableContent(rec Record) string {
	lines := make([]string, 0, len(searchableFields)+2)
	for _, f := range searchableFields {
		lines = append(lines, f.label+": "+rec.Get(f.column))
	}

	if v := rec.Get("additional_languages"); strings.TrimSpace(v) != "" {
		lines = append(lines, "Additional Languages: "+v)
	}
	if v := rec.Get("frameworks"); strings.TrimSpace(v) != "" {
		lines = append(lines, "Frameworks: "+v)
	}

	return strings.Join(lines, "\n")
}

func NewRepoDocument(rec Record) (*RepoDocument, error) {
	repository := strings.TrimSpace(rec.Get("repository"))
	if repository == "" {
		return nil, errors.New("row has no repository")
	}

	return &RepoDocument{
		Repository:        rec.Get("repository"),
		URL:               rec.Get("url"),
		SearchableContent: BuildSearchableContent(rec),
		Metadata: RepoMetadata{
			Description:           rec.Get("description"),
			CreatedDate:           rec.Get("created_date"),
			LastModified:          rec.Get("last_modified"),
			Stars:                 parseCount(rec.Get("stars")),
			Forks:                 parseCount(rec.Get("forks")),
			SolutionType:          rec.Get("solution_type"),
			SolutionMarketing:     rec.Get("solution_marketing"),
			TechnicalCompetencies: rec.Get("technical_competencies"),
			SolutionCompetencies:  rec.Get("solution_competencies"),
			DeploymentTools:       rec.Get("deployment_tools"),
			DeploymentLevel:       rec.Get("deployment_level"),
			PrimaryLanguage:       rec.Get("primary_language"),
			AdditionalLanguages:   rec.Get("additional_languages"),
			Frameworks:            rec.Get("frameworks"),
			AWSServices:           rec.Get("aws_services"),
			Prerequisites:         rec.Get("prerequisites"),
			License:               rec.Get("license"),
			SetupTime:             rec.Get("setup_time"),
			CostRange:             rec.Get("cost_range"),
			CustomerProblems:      rec.Get("customer_problems"),
			USP:                   rec.Get("usp"),
			FreshnessStatus:       rec.Get("freshness_status"),
		},
	}, nil
}

func ToKnowledgeBaseDocument(doc *RepoDocument) KnowledgeBaseDocument {
	return KnowledgeBaseDocument{
		Text: doc.SearchableContent,
		Metadata: KnowledgeBaseMetadata{
			Repository: doc.Repository,
			URL:        doc.URL,
		},
	}
}

// FileName is the object name for a repository: "owner/repo" becomes
// "owner_repo.json".
func FileName(repository string) string {
	return strings.ReplaceAll(repository, "/", "_") + ".json"
}

// Convert reads the CSV from r and writes one document per repository to
// sink. A bad row is logged and counted, it never stops the run.
func Convert(ctx context.Context, r io.Reader, sink Sink, format Format) (Stats, error) {
	var stats Stats

	records, err := ReadRecords(r)
	if err != nil {
		return stats, err
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if err := convertRecord(ctx, rec, sink, format); err != nil {
			logger.Error("Error processing row", zap.String("repository", rec.Get("repository")), zap.Error(err))
			stats.Failed++
			continue
		}

		stats.Processed++
		if stats.Processed%progressEvery == 0 {
			logger.Info("Processed repositories", zap.Int("count", stats.Processed))
		}
	}

	logger.Info("Conversion complete",
		zap.Int("processed", stats.Processed),
		zap.Int("failed", stats.Failed),
		zap.String("format", string(format)))

	return stats, nil
}

func convertRecord(ctx context.Context, rec Record, sink Sink, format Format) error {
	doc, err := NewRepoDocument(rec)
	if err != nil {
		return err
	}

	var payload any = doc
	if format == FormatKnowledgeBase {
		payload = ToKnowledgeBaseDocument(doc)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling document: %w", err)
	}

	return sink.Put(ctx, FileName(doc.Repository), data)
}

// parseCount reads a non-negative integer column; anything else counts as 0.
func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
