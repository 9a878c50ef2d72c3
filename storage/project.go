package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ByLCY/snipsheet/assets"
	"github.com/ByLCY/snipsheet/compose"
	"github.com/ByLCY/snipsheet/layout"
)

// Project 是一条项目记录，页面单独存放。
type Project struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Meta      compose.Meta   `json:"meta"`
	Margin    layout.Margin  `json:"margin"`
	Preset    compose.Preset `json:"preset"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SaveProject 在一个事务中写入项目及其全部页面，已有页面整体替换，页面顺序即列表顺序。
func (db *DB) SaveProject(ctx context.Context, p Project, pages []*layout.Page) error {
	if p.ID == "" {
		return fmt.Errorf("项目 id 不能为空")
	}
	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, name, meta_json, margin_x, margin_y, preset)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			meta_json = excluded.meta_json,
			margin_x = excluded.margin_x,
			margin_y = excluded.margin_y,
			preset = excluded.preset,
			updated_at = CURRENT_TIMESTAMP`,
		p.ID, p.Name, string(meta), p.Margin.X, p.Margin.Y, string(p.Preset),
	)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE project_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}
	for i, page := range pages {
		if err := insertPage(ctx, tx, p.ID, i, page); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertPage(ctx context.Context, tx *sql.Tx, projectID string, order int, page *layout.Page) error {
	snippets, err := json.Marshal(nonNil(page.Snippets))
	if err != nil {
		return fmt.Errorf("encode snippets: %w", err)
	}
	texts, err := json.Marshal(nonNil(page.Texts))
	if err != nil {
		return fmt.Errorf("encode texts: %w", err)
	}
	shapes, err := json.Marshal(nonNil(page.Shapes))
	if err != nil {
		return fmt.Errorf("encode shapes: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO pages (id, project_id, sort_order, paper, orientation, margin_x, margin_y, snippets_json, texts_json, shapes_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		page.ID, projectID, order, string(page.Paper), string(page.Orientation),
		nullFloat(page.MarginX), nullFloat(page.MarginY),
		string(snippets), string(texts), string(shapes),
	)
	if err != nil {
		return fmt.Errorf("save page %s: %w", page.ID, err)
	}
	return nil
}

// LoadProject 读取项目与按顺序排列的页面。
func (db *DB) LoadProject(ctx context.Context, id string) (Project, []*layout.Page, error) {
	var p Project
	var meta, preset string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, meta_json, margin_x, margin_y, preset, updated_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &meta, &p.Margin.X, &p.Margin.Y, &preset, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if err != nil {
		return Project{}, nil, fmt.Errorf("load project: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &p.Meta); err != nil {
		return Project{}, nil, fmt.Errorf("decode meta: %w", err)
	}
	p.Preset = compose.Preset(preset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, paper, orientation, margin_x, margin_y, snippets_json, texts_json, shapes_json
		 FROM pages WHERE project_id = ? ORDER BY sort_order ASC`, id,
	)
	if err != nil {
		return Project{}, nil, fmt.Errorf("load pages: %w", err)
	}
	defer rows.Close()

	var pages []*layout.Page
	for rows.Next() {
		var (
			page                    layout.Page
			paper, orientation      string
			marginX, marginY        sql.NullFloat64
			snippets, texts, shapes string
		)
		if err := rows.Scan(&page.ID, &paper, &orientation, &marginX, &marginY, &snippets, &texts, &shapes); err != nil {
			return Project{}, nil, fmt.Errorf("scan page: %w", err)
		}
		page.Paper = layout.PaperSize(paper)
		page.Orientation = layout.Orientation(orientation)
		page.MarginX = floatPtr(marginX)
		page.MarginY = floatPtr(marginY)
		if err := json.Unmarshal([]byte(snippets), &page.Snippets); err != nil {
			return Project{}, nil, fmt.Errorf("decode snippets of %s: %w", page.ID, err)
		}
		if err := json.Unmarshal([]byte(texts), &page.Texts); err != nil {
			return Project{}, nil, fmt.Errorf("decode texts of %s: %w", page.ID, err)
		}
		if err := json.Unmarshal([]byte(shapes), &page.Shapes); err != nil {
			return Project{}, nil, fmt.Errorf("decode shapes of %s: %w", page.ID, err)
		}
		pages = append(pages, &page)
	}
	if err := rows.Err(); err != nil {
		return Project{}, nil, err
	}
	return p, pages, nil
}

// ListProjects 按更新时间倒序列出项目。
func (db *DB) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, meta_json, margin_x, margin_y, preset, updated_at FROM projects ORDER BY updated_at DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var meta, preset string
		if err := rows.Scan(&p.ID, &p.Name, &meta, &p.Margin.X, &p.Margin.Y, &preset, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &p.Meta); err != nil {
			return nil, fmt.Errorf("decode meta: %w", err)
		}
		p.Preset = compose.Preset(preset)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject 删除项目，页面与素材随外键级联删除。
func (db *DB) DeleteProject(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return nil
}

// SaveAssets 写入素材库中的全部素材，同 id 覆盖。
func (db *DB) SaveAssets(ctx context.Context, projectID string, lib *assets.Memory) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range lib.IDs() {
		a, ok := lib.Asset(id)
		if !ok {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO assets (project_id, id, format, width, height, data) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(project_id, id) DO UPDATE SET
				format = excluded.format, width = excluded.width, height = excluded.height, data = excluded.data`,
			projectID, a.ID, a.Format, a.Width, a.Height, a.Data,
		)
		if err != nil {
			return fmt.Errorf("save asset %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// LoadAssets 读取项目的素材库。
func (db *DB) LoadAssets(ctx context.Context, projectID string) (*assets.Memory, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, format, width, height, data FROM assets WHERE project_id = ? ORDER BY id`, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	defer rows.Close()

	lib := assets.NewMemory()
	for rows.Next() {
		var a assets.Asset
		if err := rows.Scan(&a.ID, &a.Format, &a.Width, &a.Height, &a.Data); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		lib.Put(a)
	}
	return lib, rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
