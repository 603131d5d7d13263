package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"dytto/internal/analysis"
	"dytto/internal/leveling"
	"dytto/internal/logging"
	"dytto/internal/models"
	"dytto/internal/store"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ExportHeaders are the relationship export columns
var ExportHeaders = []string{"Name", "Level", "XP", "Categories", "Last Interaction", "Created Date"}

const reportInteractions = 10

// ExportService renders a user's data as CSV, XLSX, JSON and HTML reports
type ExportService struct {
	store    store.Store
	markdown goldmark.Markdown
	now      func() time.Time
}

// NewExportService creates a new export service
func NewExportService(st store.Store) *ExportService {
	return &ExportService{
		store: st,
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM, // tables in the report
			),
		),
		now: time.Now,
	}
}

func relationshipRow(rel *models.Relationship) []string {
	last := "Never"
	if rel.LastInteractionAt != nil {
		last = rel.LastInteractionAt.UTC().Format(time.RFC3339)
	}
	return []string{
		rel.Name,
		strconv.Itoa(rel.Level),
		strconv.FormatInt(rel.XP, 10),
		strings.Join(rel.Categories, "; "),
		last,
		rel.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CSV exports relationships with every field quoted
func (s *ExportService) CSV(ctx context.Context, userID string) ([]byte, error) {
	relationships, err := s.store.ListRelationships(ctx, models.RelationshipFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeQuotedRow(&buf, ExportHeaders)
	for _, rel := range relationships {
		buf.WriteByte('\n')
		writeQuotedRow(&buf, relationshipRow(rel))
	}
	return buf.Bytes(), nil
}

// writeQuotedRow quotes every field, unlike encoding/csv which quotes only when needed
func writeQuotedRow(buf *bytes.Buffer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
		buf.WriteByte('"')
	}
}

// XLSX exports relationships and interactions as a workbook
func (s *ExportService) XLSX(ctx context.Context, userID string) ([]byte, error) {
	relationships, err := s.store.ListRelationships(ctx, models.RelationshipFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	interactions, err := s.store.ListUserInteractions(ctx, userID, time.Time{}, 0)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"6366F1"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	const relSheet = "Relationships"
	if err := f.SetSheetName("Sheet1", relSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	relRows := make([][]string, 0, len(relationships))
	for _, rel := range relationships {
		relRows = append(relRows, relationshipRow(rel))
	}
	if err := writeSheet(f, relSheet, ExportHeaders, relRows, headerStyle); err != nil {
		return nil, err
	}

	const interactionSheet = "Interactions"
	if _, err := f.NewSheet(interactionSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	names := make(map[string]string, len(relationships))
	for _, rel := range relationships {
		names[rel.ID] = rel.Name
	}
	interactionRows := make([][]string, 0, len(interactions))
	for _, in := range interactions {
		interactionRows = append(interactionRows, []string{
			in.CreatedAt.UTC().Format(time.RFC3339),
			names[in.RelationshipID],
			string(in.Sentiment),
			strconv.Itoa(in.XPGained),
			strings.Join(in.Topics, "; "),
			in.Content,
		})
	}
	interactionHeaders := []string{"Date", "Relationship", "Sentiment", "XP Gained", "Topics", "Content"}
	if err := writeSheet(f, interactionSheet, interactionHeaders, interactionRows, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]string, headerStyle int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %s: %w", cell, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for r, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", lastCol, 20)
}

// JSON returns the full data export for a user
func (s *ExportService) JSON(ctx context.Context, userID string) (*models.ExportData, error) {
	data := &models.ExportData{
		ExportDate: s.now().UTC(),
		Version:    models.ExportVersion,
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err == nil {
		data.User = user
	}
	if data.Relationships, err = s.store.ListRelationships(ctx, models.RelationshipFilter{UserID: userID}); err != nil {
		return nil, err
	}
	if data.Interactions, err = s.store.ListUserInteractions(ctx, userID, time.Time{}, 0); err != nil {
		return nil, err
	}
	if data.LevelHistory, err = s.store.ListUserLevelHistory(ctx, userID, 0); err != nil {
		return nil, err
	}
	if data.Quests, err = s.store.ListQuests(ctx, models.QuestFilter{UserID: userID}); err != nil {
		return nil, err
	}
	return data, nil
}

// Backup import limits
const (
	MaxImportRelationships = 1000
	MaxImportInteractions  = 20000
)

func compatibleExportVersion(version string) bool {
	major, _, _ := strings.Cut(version, ".")
	want, _, _ := strings.Cut(models.ExportVersion, ".")
	return major != "" && major == want
}

// Import recreates the relationships and interactions of a JSON backup under
// userID with fresh IDs. XP is rebuilt by replaying the interactions oldest
// first, so levels and level history follow from the replay. Quests and the
// user record are not restored. Everything is validated before the first
// write, and a store failure part way removes what the import created.
func (s *ExportService) Import(ctx context.Context, userID string, data *models.ExportData) (*models.ImportSummary, error) {
	if data == nil || data.Relationships == nil {
		return nil, models.Validationf("invalid backup file format")
	}
	if !compatibleExportVersion(data.Version) {
		return nil, models.Validationf("unsupported backup version %q", data.Version)
	}
	if len(data.Relationships) > MaxImportRelationships {
		return nil, models.Validationf("backup holds more than %d relationships", MaxImportRelationships)
	}
	if len(data.Interactions) > MaxImportInteractions {
		return nil, models.Validationf("backup holds more than %d interactions", MaxImportInteractions)
	}

	now := s.now().UTC()
	ids := make(map[string]string, len(data.Relationships))
	rels := make([]*models.Relationship, 0, len(data.Relationships))
	for i, src := range data.Relationships {
		if src == nil || src.ID == "" {
			return nil, models.Validationf("relationship %d has no id", i)
		}
		if _, dup := ids[src.ID]; dup {
			return nil, models.Validationf("duplicate relationship id %s", src.ID)
		}

		rel := &models.Relationship{
			ID:               uuid.New().String(),
			UserID:           userID,
			Categories:       []string{},
			Tags:             []string{},
			ReminderInterval: models.ReminderWeekly,
			Level:            leveling.LevelFromXP(0),
			CreatedAt:        src.CreatedAt.UTC(),
			UpdatedAt:        now,
		}
		if src.CreatedAt.IsZero() {
			rel.CreatedAt = now
		}
		input := &models.RelationshipInput{
			Name:       &src.Name,
			Bio:        &src.Bio,
			PhotoURL:   &src.PhotoURL,
			Categories: src.Categories,
			Tags:       src.Tags,
		}
		if src.ReminderInterval != "" {
			input.ReminderInterval = &src.ReminderInterval
		}
		if err := applyRelationshipInput(rel, input); err != nil {
			return nil, fmt.Errorf("relationship %d: %w", i, err)
		}
		ids[src.ID] = rel.ID
		rels = append(rels, rel)
	}

	interactions := make([]*models.Interaction, 0, len(data.Interactions))
	for i, src := range data.Interactions {
		if src == nil {
			return nil, models.Validationf("interaction %d is empty", i)
		}
		relID, ok := ids[src.RelationshipID]
		if !ok {
			return nil, models.Validationf("interaction %d references unknown relationship %q", i, src.RelationshipID)
		}
		content := strings.TrimSpace(src.Content)
		if content == "" || utf8.RuneCountInString(content) > MaxContentRunes {
			return nil, models.Validationf("interaction %d content must be 1 to %d characters", i, MaxContentRunes)
		}
		if !src.Sentiment.Valid() {
			return nil, models.Validationf("interaction %d has unknown sentiment %q", i, src.Sentiment)
		}
		if src.XPGained < analysis.MinXPGain || src.XPGained > analysis.MaxXPGain {
			return nil, models.Validationf("interaction %d xp must be between %d and %d", i, analysis.MinXPGain, analysis.MaxXPGain)
		}
		createdAt := src.CreatedAt.UTC()
		if src.CreatedAt.IsZero() {
			createdAt = now
		}
		interactions = append(interactions, &models.Interaction{
			ID:             uuid.New().String(),
			RelationshipID: relID,
			UserID:         userID,
			Content:        content,
			Sentiment:      src.Sentiment,
			SentimentScore: src.Sentiment.Score(),
			XPGained:       src.XPGained,
			Topics:         append([]string{}, src.Topics...),
			Tags:           append([]string{}, src.Tags...),
			Analysis:       src.Analysis,
			CreatedAt:      createdAt,
		})
	}
	sort.SliceStable(interactions, func(i, j int) bool {
		return interactions[i].CreatedAt.Before(interactions[j].CreatedAt)
	})

	logger := logging.WithUser(userID)
	created := make([]string, 0, len(rels))
	rollback := func(cause error) error {
		cleanup := context.WithoutCancel(ctx)
		for _, id := range created {
			if err := s.store.DeleteRelationship(cleanup, userID, id); err != nil {
				logger.Error("failed to remove partially imported relationship", "relationship_id", id, "error", err)
			}
		}
		logger.Warn("backup import rolled back", "error", cause)
		return cause
	}

	for _, rel := range rels {
		if err := s.store.CreateRelationship(ctx, rel); err != nil {
			return nil, rollback(err)
		}
		created = append(created, rel.ID)
	}

	summary := &models.ImportSummary{Relationships: len(rels), Interactions: len(interactions)}
	for _, in := range interactions {
		update, err := s.store.RecordInteraction(ctx, in, leveling.LevelFromXP, nil)
		if err != nil {
			return nil, rollback(err)
		}
		if update.LevelChange != nil {
			summary.LevelUps += update.LevelChange.NewLevel - update.LevelChange.OldLevel
		}
	}

	logger.Info("backup imported", "relationships", summary.Relationships, "interactions", summary.Interactions)
	return summary, nil
}

// Report renders a relationship summary as Markdown and converts it to HTML
func (s *ExportService) Report(ctx context.Context, userID, relationshipID string) ([]byte, error) {
	rel, err := s.store.GetRelationship(ctx, userID, relationshipID)
	if err != nil {
		return nil, err
	}
	interactions, err := s.store.ListInteractions(ctx, relationshipID, reportInteractions)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListLevelHistory(ctx, relationshipID)
	if err != nil {
		return nil, err
	}

	var html bytes.Buffer
	if err := s.markdown.Convert([]byte(s.reportMarkdown(rel, interactions, history)), &html); err != nil {
		return nil, fmt.Errorf("failed to convert markdown: %w", err)
	}
	return html.Bytes(), nil
}

func (s *ExportService) reportMarkdown(rel *models.Relationship, interactions []*models.Interaction, history []*models.LevelChange) string {
	info := leveling.Describe(rel.XP)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(rel.Name))
	fmt.Fprintf(&b, "**Level %d: %s** with %d XP", info.Level, info.Title, info.XP)
	if info.MaxLevel {
		b.WriteString(" (max level)\n\n")
	} else {
		fmt.Fprintf(&b, " (%.0f%% to level %d)\n\n", info.Percentage, info.Level+1)
	}
	if rel.Bio != "" {
		fmt.Fprintf(&b, "> %s\n\n", escapeMarkdown(rel.Bio))
	}
	if len(rel.Categories) > 0 {
		fmt.Fprintf(&b, "Categories: %s\n\n", escapeMarkdown(strings.Join(rel.Categories, ", ")))
	}

	if len(info.Achievements) > 0 {
		b.WriteString("## Achievements\n\n")
		for _, a := range info.Achievements {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recent interactions\n\n")
	if len(interactions) == 0 {
		b.WriteString("No interactions logged yet.\n\n")
	} else {
		b.WriteString("| Date | Sentiment | XP | Topics | Note |\n|---|---|---|---|---|\n")
		for _, in := range interactions {
			fmt.Fprintf(&b, "| %s | %s | +%d | %s | %s |\n",
				in.CreatedAt.UTC().Format("2006-01-02"),
				in.Sentiment,
				in.XPGained,
				strings.Join(in.Topics, ", "),
				escapeTableCell(in.Content))
		}
		b.WriteString("\n")
	}

	if len(history) > 0 {
		b.WriteString("## Level history\n\n")
		for _, lc := range history {
			fmt.Fprintf(&b, "- %s: level %d → %d\n", lc.CreatedAt.UTC().Format("2006-01-02"), lc.OldLevel, lc.NewLevel)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "_Generated %s_\n", s.now().UTC().Format("2006-01-02 15:04 MST"))
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func escapeTableCell(s string) string {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
	if len([]rune(s)) > 80 {
		s = string([]rune(s)[:77]) + "..."
	}
	return strings.ReplaceAll(escapeMarkdown(s), "|", `\|`)
}
