// Package workflow_repo stores tickets, detail lines, BOM lines and the status
// audit trail in PostgreSQL.
package workflow_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/catalog"
	"stockflow/internal/domain/workflow"
	"stockflow/internal/infrastructure/storage/postgres"
)

const (
	ticketsTable = "tickets"
	detailsTable = "ticket_details"
	bomTable     = "ticket_bom_lines"
	auditTable   = "ticket_status_audit"
)

type ticketRow struct {
	entity.BaseEntity
	Domain    string   `db:"domain"`
	Number    string   `db:"number"`
	Name      string   `db:"name"`
	Status    string   `db:"status"`
	Active    bool     `db:"active"`
	Assignees []string `db:"assignees"`
	entity.Audit
}

type detailRow struct {
	ID       id.ID           `db:"id"`
	TicketID id.ID           `db:"ticket_id"`
	LineNo   int             `db:"line_no"`
	ItemKind string          `db:"item_kind"`
	ItemID   id.ID           `db:"item_id"`
	Quantity decimal.Decimal `db:"quantity"`
	Status   string          `db:"status"`
	Active   bool            `db:"active"`
	entity.Audit
}

type bomRow struct {
	ID         id.ID               `db:"id"`
	DetailID   id.ID               `db:"detail_id"`
	LineNo     int                 `db:"line_no"`
	MaterialID id.ID               `db:"material_id"`
	Planned    decimal.Decimal     `db:"planned"`
	Actual     decimal.NullDecimal `db:"actual"`
}

type auditRow struct {
	ID        id.ID   `db:"id"`
	TicketID  id.ID   `db:"ticket_id"`
	DetailID  *id.ID  `db:"detail_id"`
	OldStatus *string `db:"old_status"`
	NewStatus string  `db:"new_status"`
	postgres.StoredNote
	ActorID   string    `db:"actor_id"`
	CreatedAt time.Time `db:"created_at"`
}

var (
	ticketColumns = postgres.ExtractDBColumns[ticketRow]()
	detailColumns = postgres.ExtractDBColumns[detailRow]()
	bomColumns    = postgres.ExtractDBColumns[bomRow]()
	auditColumns  = postgres.ExtractDBColumns[auditRow]()
)

// TicketRepo implements workflow.Repository.
type TicketRepo struct {
	txManager *postgres.TxManager
	inserter  *postgres.BatchInserter
	notes     *postgres.NoteCodec
	builder   squirrel.StatementBuilderType
}

var _ workflow.Repository = (*TicketRepo)(nil)

// NewTicketRepo creates a new ticket repository.
func NewTicketRepo(txManager *postgres.TxManager, notes *postgres.NoteCodec) *TicketRepo {
	return &TicketRepo{
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
		notes:     notes,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a ticket with its details and BOM lines.
func (r *TicketRepo) Create(ctx context.Context, t *workflow.Ticket) error {
	q := r.builder.Insert(ticketsTable).SetMap(postgres.StructToMap(ticketRow{
		BaseEntity: t.BaseEntity,
		Domain:     string(t.Domain),
		Number:     t.Number,
		Name:       t.Name,
		Status:     string(t.Status),
		Active:     t.Active,
		Assignees:  nonNil(t.Assignees),
		Audit:      t.Audit,
	}))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewAlreadyExists("ticket", t.ID).WithCause(err)
		}
		return fmt.Errorf("insert ticket: %w", err)
	}

	details := make([][]any, 0, len(t.Details))
	var bom [][]any
	for i, d := range t.Details {
		details = append(details, postgres.ValuesOf(detailRow{
			ID:       d.ID,
			TicketID: t.ID,
			LineNo:   i + 1,
			ItemKind: string(d.Item.Kind),
			ItemID:   d.Item.ID,
			Quantity: d.Quantity,
			Status:   string(d.Status),
			Active:   d.Active,
			Audit:    d.Audit,
		}, detailColumns))

		for j, l := range d.BOM {
			row := bomRow{ID: l.ID, DetailID: d.ID, LineNo: j + 1, MaterialID: l.Material.ID, Planned: l.Planned}
			if l.Actual != nil {
				row.Actual = decimal.NewNullDecimal(*l.Actual)
			}
			bom = append(bom, postgres.ValuesOf(row, bomColumns))
		}
	}

	if err := r.inserter.Insert(ctx, detailsTable, detailColumns, details); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewAlreadyExists("ticket detail", t.ID).WithCause(err)
		}
		return err
	}
	return r.inserter.Insert(ctx, bomTable, bomColumns, bom)
}

// Get loads a ticket with details, BOM lines and both audit trails.
func (r *TicketRepo) Get(ctx context.Context, ticketID id.ID) (*workflow.Ticket, error) {
	t, err := r.load(ctx, ticketID, false)
	if err != nil {
		return nil, err
	}

	audits, err := r.audits(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	for _, a := range audits {
		if a.DetailID == nil {
			t.History = append(t.History, a)
			continue
		}
		if d, ok := t.Detail(*a.DetailID); ok {
			d.History = append(d.History, a)
		}
	}
	return t, nil
}

// GetForUpdate loads a ticket and locks its row until the transaction ends.
func (r *TicketRepo) GetForUpdate(ctx context.Context, ticketID id.ID) (*workflow.Ticket, error) {
	if r.txManager.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetForUpdate requires transaction context")
	}
	return r.load(ctx, ticketID, true)
}

func (r *TicketRepo) load(ctx context.Context, ticketID id.ID, forUpdate bool) (*workflow.Ticket, error) {
	querier := r.txManager.GetQuerier(ctx)

	q := r.builder.Select(ticketColumns...).
		From(ticketsTable).
		Where(squirrel.Eq{"id": ticketID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var tr ticketRow
	if err := pgxscan.Get(ctx, querier, &tr, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ticket", ticketID)
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}

	sql, args, err = r.builder.Select(detailColumns...).
		From(detailsTable).
		Where(squirrel.Eq{"ticket_id": ticketID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var drows []detailRow
	if err := pgxscan.Select(ctx, querier, &drows, sql, args...); err != nil {
		return nil, fmt.Errorf("select details: %w", err)
	}

	t := &workflow.Ticket{
		BaseEntity: tr.BaseEntity,
		Domain:     workflow.Domain(tr.Domain),
		Number:     tr.Number,
		Name:       tr.Name,
		Status:     workflow.Status(tr.Status),
		Active:     tr.Active,
		Assignees:  tr.Assignees,
		Audit:      tr.Audit,
		Details:    make([]*workflow.Detail, 0, len(drows)),
	}
	detailIDs := make([]id.ID, 0, len(drows))
	for _, dr := range drows {
		t.Details = append(t.Details, &workflow.Detail{
			ID:       dr.ID,
			TicketID: dr.TicketID,
			Item:     catalog.ItemRef{Kind: catalog.VariantKind(dr.ItemKind), ID: dr.ItemID},
			Quantity: dr.Quantity,
			Status:   workflow.Status(dr.Status),
			Active:   dr.Active,
			Audit:    dr.Audit,
		})
		detailIDs = append(detailIDs, dr.ID)
	}
	if len(detailIDs) == 0 {
		return t, nil
	}

	sql, args, err = r.builder.Select(bomColumns...).
		From(bomTable).
		Where(squirrel.Eq{"detail_id": detailIDs}).
		OrderBy("detail_id", "line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var brows []bomRow
	if err := pgxscan.Select(ctx, querier, &brows, sql, args...); err != nil {
		return nil, fmt.Errorf("select bom lines: %w", err)
	}
	for _, br := range brows {
		d, ok := t.Detail(br.DetailID)
		if !ok {
			continue
		}
		line := workflow.BOMLine{ID: br.ID, Material: catalog.Material(br.MaterialID), Planned: br.Planned}
		if br.Actual.Valid {
			v := br.Actual.Decimal
			line.Actual = &v
		}
		d.BOM = append(d.BOM, line)
	}
	return t, nil
}

func (r *TicketRepo) audits(ctx context.Context, ticketID id.ID) ([]workflow.StatusAudit, error) {
	sql, args, err := r.builder.Select(auditColumns...).
		From(auditTable).
		Where(squirrel.Eq{"ticket_id": ticketID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []auditRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select status audit: %w", err)
	}

	out := make([]workflow.StatusAudit, 0, len(rows))
	for _, row := range rows {
		note, err := r.notes.Decode(row.StoredNote)
		if err != nil {
			return nil, err
		}
		a := workflow.StatusAudit{
			ID:        row.ID,
			TicketID:  row.TicketID,
			DetailID:  row.DetailID,
			NewStatus: workflow.Status(row.NewStatus),
			Note:      note,
			ActorID:   row.ActorID,
			CreatedAt: row.CreatedAt,
		}
		if row.OldStatus != nil {
			s := workflow.Status(*row.OldStatus)
			a.OldStatus = &s
		}
		out = append(out, a)
	}
	return out, nil
}

// FindDetailOwner returns the ticket a detail belongs to.
func (r *TicketRepo) FindDetailOwner(ctx context.Context, detailID id.ID) (id.ID, error) {
	sql, args, err := r.builder.Select("ticket_id").
		From(detailsTable).
		Where(squirrel.Eq{"id": detailID}).
		ToSql()
	if err != nil {
		return id.Nil, fmt.Errorf("build query: %w", err)
	}

	var owner id.ID
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &owner, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return id.Nil, apperror.NewNotFound("ticket detail", detailID)
		}
		return id.Nil, fmt.Errorf("find detail owner: %w", err)
	}
	return owner, nil
}

// Save writes status and audit fields of the ticket and its details.
// The ticket version must match; it is incremented on success.
func (r *TicketRepo) Save(ctx context.Context, t *workflow.Ticket) error {
	querier := r.txManager.GetQuerier(ctx)

	sql, args, err := r.builder.Update(ticketsTable).
		Set("status", string(t.Status)).
		Set("active", t.Active).
		Set("assignees", nonNil(t.Assignees)).
		Set("updated_at", t.UpdatedAt).
		Set("updated_by", t.UpdatedBy).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": t.ID, "version": t.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("ticket", t.ID)
	}

	for _, d := range t.Details {
		sql, args, err := r.builder.Update(detailsTable).
			Set("status", string(d.Status)).
			Set("active", d.Active).
			Set("updated_at", d.UpdatedAt).
			Set("updated_by", d.UpdatedBy).
			Where(squirrel.Eq{"id": d.ID, "ticket_id": t.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("update ticket detail: %w", err)
		}
	}

	t.Version++
	return nil
}

// SaveConsumption writes the actual quantity of every BOM line of d that has one.
func (r *TicketRepo) SaveConsumption(ctx context.Context, d *workflow.Detail) error {
	querier := r.txManager.GetQuerier(ctx)
	for _, l := range d.BOM {
		if l.Actual == nil {
			continue
		}
		sql, args, err := r.builder.Update(bomTable).
			Set("actual", *l.Actual).
			Where(squirrel.Eq{"id": l.ID, "detail_id": d.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		tag, err := querier.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("update bom line: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.NewNotFound("bom line", l.ID)
		}
	}
	return nil
}

// AppendAudit appends status audit entries. Long notes are stored compressed.
func (r *TicketRepo) AppendAudit(ctx context.Context, entries ...workflow.StatusAudit) error {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		row := auditRow{
			ID:         e.ID,
			TicketID:   e.TicketID,
			DetailID:   e.DetailID,
			NewStatus:  string(e.NewStatus),
			StoredNote: r.notes.Encode(e.Note),
			ActorID:    e.ActorID,
			CreatedAt:  e.CreatedAt,
		}
		if e.OldStatus != nil {
			s := string(*e.OldStatus)
			row.OldStatus = &s
		}
		rows = append(rows, postgres.ValuesOf(row, auditColumns))
	}
	return r.inserter.Insert(ctx, auditTable, auditColumns, rows)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
