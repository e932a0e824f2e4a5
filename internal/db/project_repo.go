package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"brineguard/internal/types"
)

// ProjectRepository provides data access for the projects table. The
// neutral design model is stored whole as a JSONB column; list queries
// never hydrate it.
type ProjectRepository struct {
	db DBTX
}

// NewProjectRepository creates a new ProjectRepository backed by the given
// database connection (pool or transaction).
func NewProjectRepository(db DBTX) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `p.id, p.name, p.location_name, p.latitude, p.longitude,
	p.design, p.status, p.created_at, p.updated_at`

func scanProject(row pgx.Row) (*types.ProjectRecord, error) {
	var rec types.ProjectRecord
	var design []byte

	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.LocationName,
		&rec.Latitude,
		&rec.Longitude,
		&design,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(design) > 0 {
		project, err := types.ProjectFromJSON(design)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "decoding stored design", err)
		}
		rec.Design = project
	}
	return &rec, nil
}

// Create inserts a new project record. A missing ID is generated; the
// design's project_id is stamped to match the record.
func (r *ProjectRepository) Create(ctx context.Context, rec *types.ProjectRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = types.ProjectStatusDraft
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	var design []byte
	if rec.Design != nil {
		rec.Design.ProjectID = rec.ID
		if rec.Design.SchemaVersion == "" {
			rec.Design.SchemaVersion = types.CurrentSchemaVersion
		}
		var err error
		design, err = json.Marshal(rec.Design)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "encoding design", err)
		}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO projects (id, name, location_name, latitude, longitude, design, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Name, rec.LocationName, rec.Latitude, rec.Longitude, design, rec.Status, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "inserting project", err)
	}
	return nil
}

// GetByID fetches one project with its full design.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*types.ProjectRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = $1`, id)
	rec, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundProject, "project not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "fetching project", err)
	}
	return rec, nil
}

// UpdateDesign replaces the stored design and bumps updated_at.
func (r *ProjectRepository) UpdateDesign(ctx context.Context, id string, design *types.SimulationProject) error {
	design.ProjectID = id
	encoded, err := json.Marshal(design)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "encoding design", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE projects SET design = $2, updated_at = $3 WHERE id = $1`,
		id, encoded, time.Now().UTC(),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "updating project design", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProject, "project not found", nil)
	}
	return nil
}

// SetStatus updates the project lifecycle status.
func (r *ProjectRepository) SetStatus(ctx context.Context, id, status string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE projects SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "updating project status", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProject, "project not found", nil)
	}
	return nil
}

// List returns project records ordered by creation time, newest first,
// without their designs.
func (r *ProjectRepository) List(ctx context.Context, limit, offset int) ([]*types.ProjectRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.location_name, p.latitude, p.longitude, p.status, p.created_at, p.updated_at
		FROM projects p
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing projects", err)
	}
	defer rows.Close()

	var out []*types.ProjectRecord
	for rows.Next() {
		var rec types.ProjectRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.LocationName, &rec.Latitude, &rec.Longitude, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning project row", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating project rows", err)
	}
	return out, nil
}

// Delete removes a project and cascades to its runs.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "deleting project", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundProject, "project not found", nil)
	}
	return nil
}
