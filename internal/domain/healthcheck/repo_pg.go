package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portal/gateway/internal/platform/db"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Campaigns --

type campaignRepoPG struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) CampaignRepository {
	return &campaignRepoPG{pool: pool}
}

const campaignCols = `campaign_id, name, campaign_type, description, start_date, end_date, status,
	total_employees, scheduled_count, pending_count, checked_count, missed_count,
	version, created_at, updated_at`

const campaignSummaryCols = `campaign_id, name, campaign_type, start_date, end_date, status,
	total_employees, scheduled_count, pending_count, checked_count, missed_count, created_at`

const appointmentCols = `appointment_id, employee_id, employee_name, department, doctor_id, doctor_name,
	scheduled_date, scheduled_time, status, sent_to_hrm, hrm_sync_date,
	health_status, restrictions, doctor_conclusion`

const upsertAppointment = `
	INSERT INTO health_check_appointments (
		appointment_id, campaign_id, position, employee_id, employee_name, department,
		doctor_id, doctor_name, scheduled_date, scheduled_time, status, sent_to_hrm,
		hrm_sync_date, health_status, restrictions, doctor_conclusion
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	ON CONFLICT (appointment_id) DO UPDATE SET
		employee_name = EXCLUDED.employee_name,
		department = EXCLUDED.department,
		doctor_id = EXCLUDED.doctor_id,
		doctor_name = EXCLUDED.doctor_name,
		scheduled_date = EXCLUDED.scheduled_date,
		scheduled_time = EXCLUDED.scheduled_time,
		status = EXCLUDED.status,
		sent_to_hrm = EXCLUDED.sent_to_hrm,
		hrm_sync_date = EXCLUDED.hrm_sync_date,
		health_status = EXCLUDED.health_status,
		restrictions = EXCLUDED.restrictions,
		doctor_conclusion = EXCLUDED.doctor_conclusion`

func (r *campaignRepoPG) Create(ctx context.Context, c *Campaign) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		tag, err := conn(ctx, r.pool).Exec(ctx, `
			INSERT INTO health_check_campaigns (
				campaign_id, name, campaign_type, description, start_date, end_date, status,
				total_employees, scheduled_count, pending_count, checked_count, missed_count,
				version, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1,$13,$14)
			ON CONFLICT (campaign_id) DO NOTHING`,
			c.CampaignID, c.Name, string(c.Type), c.Description, c.StartDate, c.EndDate, string(c.Status),
			c.TotalEmployees, c.ScheduledCount, c.PendingCount, c.CheckedCount, c.MissedCount,
			c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrDuplicateCampaign
		}
		if err := r.upsertAppointments(ctx, c); err != nil {
			return err
		}
		c.Version = 1
		return nil
	})
}

func (r *campaignRepoPG) Get(ctx context.Context, campaignID string) (*Campaign, error) {
	c, err := scanCampaign(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+campaignCols+` FROM health_check_campaigns WHERE campaign_id = $1`, campaignID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+appointmentCols+` FROM health_check_appointments WHERE campaign_id = $1 ORDER BY position`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		c.Appointments = append(c.Appointments, a)
	}
	return c, rows.Err()
}

func (r *campaignRepoPG) Save(ctx context.Context, c *Campaign) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := conn(ctx, r.pool)
		tag, err := q.Exec(ctx, `
			UPDATE health_check_campaigns SET
				name = $3, campaign_type = $4, description = $5, start_date = $6, end_date = $7,
				status = $8, total_employees = $9, scheduled_count = $10, pending_count = $11,
				checked_count = $12, missed_count = $13, updated_at = $14, version = version + 1
			WHERE campaign_id = $1 AND version = $2`,
			c.CampaignID, c.Version,
			c.Name, string(c.Type), c.Description, c.StartDate, c.EndDate,
			string(c.Status), c.TotalEmployees, c.ScheduledCount, c.PendingCount,
			c.CheckedCount, c.MissedCount, c.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := q.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM health_check_campaigns WHERE campaign_id = $1)`, c.CampaignID,
			).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			return ErrConflict
		}
		if err := r.upsertAppointments(ctx, c); err != nil {
			return err
		}
		c.Version++
		return nil
	})
}

// upsertAppointments writes the whole appointment list in one batch. Rows are
// never deleted since appointments are append-only.
func (r *campaignRepoPG) upsertAppointments(ctx context.Context, c *Campaign) error {
	if len(c.Appointments) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, a := range c.Appointments {
		restrictions := a.Restrictions
		if restrictions == nil {
			restrictions = []string{}
		}
		batch.Queue(upsertAppointment,
			a.AppointmentID, c.CampaignID, i, a.EmployeeID, a.EmployeeName, a.Department,
			a.DoctorID, a.DoctorName, a.ScheduledDate, a.ScheduledTime, string(a.Status), a.SentToHRM,
			a.HRMSyncDate, string(a.HealthStatus), restrictions, a.DoctorConclusion,
		)
	}
	br := conn(ctx, r.pool).SendBatch(ctx, batch)
	for range c.Appointments {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert appointment: %w", err)
		}
	}
	return br.Close()
}

func (r *campaignRepoPG) ListSummaries(ctx context.Context) ([]*CampaignSummary, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+campaignSummaryCols+` FROM health_check_campaigns ORDER BY created_at DESC, campaign_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CampaignSummary
	for rows.Next() {
		var s CampaignSummary
		var typ, status string
		if err := rows.Scan(&s.CampaignID, &s.Name, &typ, &s.StartDate, &s.EndDate, &status,
			&s.TotalEmployees, &s.ScheduledCount, &s.PendingCount, &s.CheckedCount, &s.MissedCount,
			&s.CreatedAt); err != nil {
			return nil, err
		}
		s.Type = CampaignType(typ)
		s.Status = CampaignStatus(status)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *campaignRepoPG) ListAppointmentsBetween(ctx context.Context, from, to time.Time, campaignID string) ([]*ScheduledAppointment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT a.campaign_id, c.name,
			a.appointment_id, a.employee_id, a.employee_name, a.department, a.doctor_id, a.doctor_name,
			a.scheduled_date, a.scheduled_time, a.status, a.sent_to_hrm, a.hrm_sync_date,
			a.health_status, a.restrictions, a.doctor_conclusion
		FROM health_check_appointments a
		JOIN health_check_campaigns c ON c.campaign_id = a.campaign_id
		WHERE a.scheduled_date >= $1 AND a.scheduled_date < $2
		  AND ($3 = '' OR a.campaign_id = $3)
		ORDER BY a.scheduled_time, a.campaign_id, a.position`, from, to, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ScheduledAppointment
	for rows.Next() {
		var sa ScheduledAppointment
		var status, health string
		a := &sa.Appointment
		if err := rows.Scan(&sa.CampaignID, &sa.CampaignName,
			&a.AppointmentID, &a.EmployeeID, &a.EmployeeName, &a.Department, &a.DoctorID, &a.DoctorName,
			&a.ScheduledDate, &a.ScheduledTime, &status, &a.SentToHRM, &a.HRMSyncDate,
			&health, &a.Restrictions, &a.DoctorConclusion); err != nil {
			return nil, err
		}
		a.Status = AppointmentStatus(status)
		a.HealthStatus = HealthStatus(health)
		out = append(out, &sa)
	}
	return out, rows.Err()
}

func scanCampaign(row pgx.Row) (*Campaign, error) {
	var c Campaign
	var typ, status string
	err := row.Scan(&c.CampaignID, &c.Name, &typ, &c.Description, &c.StartDate, &c.EndDate, &status,
		&c.TotalEmployees, &c.ScheduledCount, &c.PendingCount, &c.CheckedCount, &c.MissedCount,
		&c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Type = CampaignType(typ)
	c.Status = CampaignStatus(status)
	return &c, nil
}

func scanAppointment(rows pgx.Rows) (Appointment, error) {
	var a Appointment
	var status, health string
	err := rows.Scan(&a.AppointmentID, &a.EmployeeID, &a.EmployeeName, &a.Department, &a.DoctorID, &a.DoctorName,
		&a.ScheduledDate, &a.ScheduledTime, &status, &a.SentToHRM, &a.HRMSyncDate,
		&health, &a.Restrictions, &a.DoctorConclusion)
	a.Status = AppointmentStatus(status)
	a.HealthStatus = HealthStatus(health)
	return a, err
}

// -- Results --

type resultRepoPG struct {
	pool *pgxpool.Pool
}

func NewResultRepo(pool *pgxpool.Pool) ResultRepository {
	return &resultRepoPG{pool: pool}
}

// resultSummaryCols are the only columns the HR-facing listing reads.
const resultSummaryCols = `his_record_id, campaign_id, appointment_id, employee_id, employee_name,
	check_date, health_status, restrictions, doctor_conclusion`

func (r *resultRepoPG) Create(ctx context.Context, res *Result) error {
	private := []any{res.Vitals, res.LabResults, res.Imaging, res.PhysicalExamination,
		res.DetailedDiagnosis, res.RecommendedTreatment}
	encoded := make([][]byte, len(private))
	for i, v := range private {
		b, err := jsonb(v)
		if err != nil {
			return fmt.Errorf("encode clinical detail: %w", err)
		}
		encoded[i] = b
	}
	restrictions := res.Restrictions
	if restrictions == nil {
		restrictions = []string{}
	}

	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO health_check_results (
			his_record_id, appointment_id, campaign_id, employee_id, employee_name, department,
			doctor_id, doctor_name, check_date, check_time,
			health_status, restrictions, doctor_conclusion, summary_for_hr,
			vitals, lab_results, imaging, physical_examination, detailed_diagnosis, recommended_treatment,
			doctor_private_notes, follow_up_notes, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		res.HISRecordID, res.AppointmentID, res.CampaignID, res.EmployeeID, res.EmployeeName, res.Department,
		res.DoctorID, res.DoctorName, res.CheckDate, res.CheckTime,
		string(res.HealthStatus), restrictions, res.DoctorConclusion, res.SummaryForHR,
		encoded[0], encoded[1], encoded[2], encoded[3], encoded[4], encoded[5],
		res.DoctorPrivateNotes, res.FollowUpNotes, res.CreatedAt,
	)
	return err
}

func (r *resultRepoPG) ListSummaries(ctx context.Context, campaignID, employeeID string) ([]*ResultSummary, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+resultSummaryCols+` FROM health_check_results
		WHERE campaign_id = $1 AND ($2 = '' OR employee_id = $2)
		ORDER BY check_date DESC, created_at DESC`, campaignID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ResultSummary
	for rows.Next() {
		var s ResultSummary
		var health string
		if err := rows.Scan(&s.HISRecordID, &s.CampaignID, &s.AppointmentID, &s.EmployeeID, &s.EmployeeName,
			&s.CheckDate, &health, &s.Restrictions, &s.DoctorConclusion); err != nil {
			return nil, err
		}
		s.HealthStatus = HealthStatus(health)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *resultRepoPG) CountByHealthStatus(ctx context.Context, campaignID string) (map[HealthStatus]int, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT health_status, COUNT(*) FROM health_check_results
		WHERE campaign_id = $1 GROUP BY health_status`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[HealthStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[HealthStatus(status)] = n
	}
	return counts, rows.Err()
}

// -- Sync logs --

type syncLogRepoPG struct {
	pool *pgxpool.Pool
}

func NewSyncLogRepo(pool *pgxpool.Pool) SyncLogRepository {
	return &syncLogRepoPG{pool: pool}
}

const syncLogCols = `id, campaign_id, sync_type, direction, status, records_count, successful_count,
	failed_count, message, error_message, details, initiated_by, initiated_at, completed_at, duration_ms`

func (r *syncLogRepoPG) Create(ctx context.Context, e *SyncLogEntry) error {
	details, err := jsonb(e.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	_, err = conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO sync_logs (`+syncLogCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		e.ID, e.CampaignID, string(e.SyncType), string(e.Direction), string(e.Status),
		e.RecordsCount, e.SuccessfulCount, e.FailedCount, e.Message, e.ErrorMessage, details,
		e.InitiatedBy, e.InitiatedAt, e.CompletedAt, e.DurationMS,
	)
	return err
}

func (r *syncLogRepoPG) Finish(ctx context.Context, e *SyncLogEntry) error {
	details, err := jsonb(e.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	q := conn(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE sync_logs SET
			status = $2, records_count = $3, successful_count = $4, failed_count = $5,
			message = $6, error_message = $7, details = $8, completed_at = $9, duration_ms = $10
		WHERE id = $1 AND completed_at IS NULL`,
		e.ID, string(e.Status), e.RecordsCount, e.SuccessfulCount, e.FailedCount,
		e.Message, e.ErrorMessage, details, e.CompletedAt, e.DurationMS,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sync_logs WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrLedgerClosed
	}
	return nil
}

func (r *syncLogRepoPG) List(ctx context.Context, f LedgerFilter, limit, offset int) ([]*SyncLogEntry, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CampaignID != "" {
		add("campaign_id = $%d", f.CampaignID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.SyncType != "" {
		add("sync_type = $%d", string(f.SyncType))
	}
	clause := strings.Join(where, " AND ")

	q := conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM sync_logs WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT `+syncLogCols+` FROM sync_logs WHERE %s
		ORDER BY initiated_at DESC, id DESC LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*SyncLogEntry
	for rows.Next() {
		var e SyncLogEntry
		var syncType, direction, status string
		var details []byte
		if err := rows.Scan(&e.ID, &e.CampaignID, &syncType, &direction, &status,
			&e.RecordsCount, &e.SuccessfulCount, &e.FailedCount, &e.Message, &e.ErrorMessage, &details,
			&e.InitiatedBy, &e.InitiatedAt, &e.CompletedAt, &e.DurationMS); err != nil {
			return nil, 0, err
		}
		e.SyncType = SyncType(syncType)
		e.Direction = SyncDirection(direction)
		e.Status = SyncStatus(status)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, 0, fmt.Errorf("decode details of %s: %w", e.ID, err)
			}
		}
		out = append(out, &e)
	}
	return out, total, rows.Err()
}

// jsonb encodes v for a JSONB column, mapping nil values to SQL NULL.
func jsonb(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}
