package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/kebiao/pkg/errors"
)

// TimetableRun 一次求解记录
type TimetableRun struct {
	ID           uuid.UUID       `json:"id"`
	Status       string          `json:"status"`
	TotalPenalty int64           `json:"total_penalty"`
	SolveSeconds float64         `json:"solve_seconds"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RunStore 求解记录存储接口
type RunStore interface {
	Create(ctx context.Context, run *TimetableRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*TimetableRun, error)
	List(ctx context.Context, filter ListFilter) ([]*TimetableRun, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TimetableRunRepository 求解记录仓储实现
type TimetableRunRepository struct {
	db DB
}

// NewTimetableRunRepository 创建求解记录仓储
func NewTimetableRunRepository(db DB) *TimetableRunRepository {
	return &TimetableRunRepository{db: db}
}

// Create 保存求解记录
func (r *TimetableRunRepository) Create(ctx context.Context, run *TimetableRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO timetable_runs (id, status, total_penalty, solve_seconds, input, output, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, run.TotalPenalty, run.SolveSeconds,
		[]byte(run.Input), nullableJSON(run.Output), run.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存求解记录失败").WithField("id", run.ID.String())
	}
	return nil
}

// GetByID 根据ID获取求解记录，包含输入与输出文档
func (r *TimetableRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*TimetableRun, error) {
	query := `
		SELECT id, status, total_penalty, solve_seconds, input, output, created_at
		FROM timetable_runs
		WHERE id = $1
	`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, id), true)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("timetable_run", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询求解记录失败").WithField("id", id.String())
	}
	return run, nil
}

// List 列出求解记录，不含输入与输出文档
func (r *TimetableRunRepository) List(ctx context.Context, filter ListFilter) ([]*TimetableRun, int, error) {
	where := ""
	var args []interface{}
	if filter.Status != "" {
		where = "WHERE status = $1"
		args = append(args, filter.Status)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM timetable_runs %s", where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "统计求解记录失败")
	}

	query := fmt.Sprintf(`
		SELECT id, status, total_penalty, solve_seconds, created_at
		FROM timetable_runs %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, filter.orderClause("created_at", "total_penalty", "solve_seconds"), len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询求解记录列表失败")
	}
	defer rows.Close()

	var runs []*TimetableRun
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "读取求解记录失败")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "读取求解记录失败")
	}
	return runs, total, nil
}

// Delete 删除求解记录
func (r *TimetableRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM timetable_runs WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "删除求解记录失败").WithField("id", id.String())
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("timetable_run", id.String())
	}
	return nil
}

func scanRun(s Scanner, withDocs bool) (*TimetableRun, error) {
	var run TimetableRun
	if !withDocs {
		if err := s.Scan(&run.ID, &run.Status, &run.TotalPenalty, &run.SolveSeconds, &run.CreatedAt); err != nil {
			return nil, err
		}
		return &run, nil
	}
	var input, output []byte
	if err := s.Scan(&run.ID, &run.Status, &run.TotalPenalty, &run.SolveSeconds, &input, &output, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.Input = input
	if len(output) > 0 {
		run.Output = output
	}
	return &run, nil
}

// nullableJSON 空文档写入 NULL
func nullableJSON(doc json.RawMessage) interface{} {
	if len(doc) == 0 {
		return nil
	}
	return []byte(doc)
}
