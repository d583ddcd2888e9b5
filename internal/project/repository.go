package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/therealutkarshpriyadarshi/timeline/internal/database"
	"github.com/therealutkarshpriyadarshi/timeline/internal/timeline"
	"github.com/therealutkarshpriyadarshi/timeline/internal/tracing"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

var (
	ErrNotFound       = errors.New("project not found")
	ErrExportNotFound = errors.New("export job not found")
	ErrEmptyName      = errors.New("project name is required")
)

const projectColumns = `id, user_id, company_id, name, description, thumbnail_url, project_data, status,
	total_duration, clip_count, exported_media_id, last_opened_at, created_at, updated_at`

// Repository persists projects and their export jobs in Postgres
type Repository struct {
	db *database.DB
}

// NewRepository creates a new repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Summarize derives the listing columns from the editor state
func Summarize(data models.ProjectData) (total float64, clipCount int) {
	return timeline.TotalDuration(data.Clips), len(data.Clips)
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID, &p.UserID, &p.CompanyID, &p.Name, &p.Description, &p.ThumbnailURL, &p.Data, &p.Status,
		&p.TotalDuration, &p.ClipCount, &p.ExportedMediaID, &p.LastOpenedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new draft project
func (r *Repository) Create(ctx context.Context, p *models.Project) (err error) {
	span, ctx := tracing.StartSpan(ctx, "project.create")
	defer tracing.FinishSpan(span)
	defer observe("create_project", time.Now(), &err)

	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = models.ProjectStatusDraft
	}
	p.Data = Normalize(p.Data)
	p.TotalDuration, p.ClipCount = Summarize(p.Data)

	query := `
		INSERT INTO projects (id, user_id, company_id, name, description, thumbnail_url, project_data, status, total_duration, clip_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		p.ID, p.UserID, p.CompanyID, p.Name, p.Description, p.ThumbnailURL, p.Data, p.Status,
		p.TotalDuration, p.ClipCount,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		tracing.LogError(span, err)
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// Get retrieves a project owned by userID
func (r *Repository) Get(ctx context.Context, id, userID string) (p *models.Project, err error) {
	defer observe("get_project", time.Now(), &err)

	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND user_id = $2`

	p, err = scanProject(r.db.Pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return p, nil
}

// Open loads a project for editing and stamps last_opened_at
func (r *Repository) Open(ctx context.Context, id, userID string) (p *models.Project, err error) {
	span, ctx := tracing.StartProjectSpan(ctx, "project.open", id)
	defer tracing.FinishSpan(span)
	defer observe("open_project", time.Now(), &err)

	query := `
		UPDATE projects SET last_opened_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + projectColumns

	p, err = scanProject(r.db.Pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		tracing.LogError(span, err)
		return nil, fmt.Errorf("failed to open project: %w", err)
	}

	p.Data = Normalize(p.Data)
	return p, nil
}

// buildListQuery renders the listing query; archived projects are hidden
// unless asked for explicitly
func buildListQuery(userID string, opts models.ProjectListOptions) (string, []interface{}) {
	args := []interface{}{userID}
	where := []string{"user_id = $1"}

	switch opts.Status {
	case "":
		where = append(where, fmt.Sprintf("status <> '%s'", models.ProjectStatusArchived))
	case models.ProjectStatusAll:
	default:
		args = append(args, opts.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	sortBy := "updated_at"
	switch opts.SortBy {
	case "created_at", "name", "last_opened_at":
		sortBy = opts.SortBy
	}
	dir := "DESC"
	if opts.Ascending {
		dir = "ASC"
	}

	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`SELECT %s FROM projects WHERE %s ORDER BY %s %s NULLS LAST LIMIT $%d OFFSET $%d`,
		projectColumns, strings.Join(where, " AND "), sortBy, dir, len(args)-1, len(args))
	return query, args
}

// List retrieves a user's projects
func (r *Repository) List(ctx context.Context, userID string, opts models.ProjectListOptions) (projects []*models.Project, err error) {
	defer observe("list_projects", time.Now(), &err)

	query, args := buildListQuery(userID, opts)
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// Save writes the editor state; name is optional
func (r *Repository) Save(ctx context.Context, id, userID string, name *string, data models.ProjectData) (updatedAt time.Time, err error) {
	span, ctx := tracing.StartProjectSpan(ctx, "project.save", id)
	defer tracing.FinishSpan(span)
	defer observe("save_project", time.Now(), &err)

	if name != nil && strings.TrimSpace(*name) == "" {
		return time.Time{}, ErrEmptyName
	}

	data = Normalize(data)
	total, count := Summarize(data)

	query := `
		UPDATE projects
		SET project_data = $3, name = COALESCE($4, name), total_duration = $5, clip_count = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query, id, userID, data, name, total, count).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		tracing.LogError(span, err)
		return time.Time{}, fmt.Errorf("failed to save project: %w", err)
	}

	return updatedAt, nil
}

// UpdateDetails changes a project's name and description
func (r *Repository) UpdateDetails(ctx context.Context, id, userID, name, description string) (err error) {
	defer observe("update_project", time.Now(), &err)

	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE projects SET name = $3, description = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, name, description)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) setStatus(ctx context.Context, op, id, userID, status string, exportedMediaID *string) (err error) {
	defer observe(op, time.Now(), &err)

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE projects SET status = $3, exported_media_id = COALESCE($4, exported_media_id), updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID, status, exportedMediaID)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", strings.ReplaceAll(op, "_", " "), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Archive hides a project from default listings
func (r *Repository) Archive(ctx context.Context, id, userID string) error {
	return r.setStatus(ctx, "archive_project", id, userID, models.ProjectStatusArchived, nil)
}

// MarkExported records the media file produced by a successful export
func (r *Repository) MarkExported(ctx context.Context, id, userID, mediaFileID string) error {
	return r.setStatus(ctx, "mark_exported", id, userID, models.ProjectStatusExported, &mediaFileID)
}

// Duplicate copies a project's editor state into a new draft
func (r *Repository) Duplicate(ctx context.Context, id, userID, name string) (*models.Project, error) {
	src, err := r.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		name = src.Name + " (copy)"
	}

	dup := &models.Project{
		UserID:       src.UserID,
		CompanyID:    src.CompanyID,
		Name:         name,
		Description:  src.Description,
		ThumbnailURL: src.ThumbnailURL,
		Data:         src.Data,
		Status:       models.ProjectStatusDraft,
	}
	if err := r.Create(ctx, dup); err != nil {
		return nil, err
	}

	return dup, nil
}

// Delete removes a project and, by cascade, its export jobs
func (r *Repository) Delete(ctx context.Context, id, userID string) (err error) {
	defer observe("delete_project", time.Now(), &err)

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func observe(op string, start time.Time, err *error) {
	var e error
	if err != nil && *err != nil && !errors.Is(*err, ErrNotFound) && !errors.Is(*err, ErrExportNotFound) {
		e = *err
	}
	database.Observe(op, start, e)
}
