package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/smarteventhub/internal/domain/event"
	"github.com/geocoder89/smarteventhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// constructor function

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *EventsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const eventColumns = `id, organization_id, title, description, category, mode,
	start_at, end_at, location,
	poster_url, cert_template_url, signature_url,
	custom_fields, share_id, registration_link, certificates_sent,
	created_at, updated_at`

// custom fields travel as jsonb
func scanEvent(row pgx.Row) (event.Event, error) {
	var e event.Event
	var fieldsJSON []byte

	err := row.Scan(
		&e.ID, &e.OrganizationID, &e.Title, &e.Description, &e.Category, &e.Mode,
		&e.StartAt, &e.EndAt, &e.Location,
		&e.PosterURL, &e.CertTemplateURL, &e.SignatureURL,
		&fieldsJSON, &e.ShareID, &e.RegistrationLink, &e.CertificatesSent,
		&e.CreatedAt, &e.UpdatedAt,
	)

	if err != nil {
		return event.Event{}, err
	}

	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &e.CustomFields); err != nil {
			return event.Event{}, err
		}
	}

	return e, nil
}

func (r *EventsRepo) Create(ctx context.Context, e event.Event) (event.Event, error) {
	fieldsJSON, err := json.Marshal(e.CustomFields)

	if err != nil {
		return event.Event{}, err
	}

	err = r.observe("events.create", func() error {
		_, execErr := r.pool.Exec(ctx, `
			INSERT INTO events(
				id, organization_id, title, description, category, mode,
				start_at, end_at, location,
				poster_url, cert_template_url, signature_url,
				custom_fields, share_id, registration_link, certificates_sent,
				created_at, updated_at
			)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
			e.ID, e.OrganizationID, e.Title, e.Description, e.Category, e.Mode,
			e.StartAt, e.EndAt, e.Location,
			e.PosterURL, e.CertTemplateURL, e.SignatureURL,
			fieldsJSON, e.ShareID, e.RegistrationLink, e.CertificatesSent,
			e.CreatedAt, e.UpdatedAt,
		)
		return execErr
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) List(ctx context.Context, organizationID string, filter event.ListEventsFilter) ([]event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organization_id = $1`

	args := []interface{}{organizationID}
	argsPosition := 2

	// filtered conditional checks.
	if filter.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argsPosition)
		args = append(args, *filter.Category)
		argsPosition++
	}

	if filter.Mode != nil {
		query += fmt.Sprintf(" AND mode = $%d", argsPosition)
		args = append(args, *filter.Mode)
		argsPosition++
	}

	if filter.Query != nil {
		query += fmt.Sprintf(" AND title ILIKE $%d", argsPosition)
		args = append(args, "%"+strings.TrimSpace(*filter.Query)+"%")
		argsPosition++
	}

	// newest first, matching the dashboard listing
	query += " ORDER BY created_at DESC, id DESC"

	var output []event.Event

	err := r.observe("events.list", func() error {
		rows, qErr := r.pool.Query(ctx, query, args...)

		if qErr != nil {
			return qErr
		}

		defer rows.Close()

		output = make([]event.Event, 0, 16)

		for rows.Next() {
			e, sErr := scanEvent(rows)

			if sErr != nil {
				return sErr
			}

			output = append(output, e)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event

	err := r.observe("events.get_by_id", func() error {
		var sErr error
		e, sErr = scanEvent(r.pool.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
		return sErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// GetForOrganization scopes the lookup to the owning organization, the
// way every management endpoint reads events.
func (r *EventsRepo) GetForOrganization(ctx context.Context, id, organizationID string) (event.Event, error) {
	var e event.Event

	err := r.observe("events.get_for_org", func() error {
		var sErr error
		e, sErr = scanEvent(r.pool.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1 AND organization_id = $2`,
			id, organizationID))
		return sErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// public registration page resolves events by share id
func (r *EventsRepo) GetByShareID(ctx context.Context, shareID string) (event.Event, error) {
	var e event.Event

	err := r.observe("events.get_by_share_id", func() error {
		var sErr error
		e, sErr = scanEvent(r.pool.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE share_id = $1`, shareID))
		return sErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) Update(ctx context.Context, id, organizationID string, req event.UpdateEventRequest) (event.Event, error) {
	fieldsJSON, err := json.Marshal(req.CustomFields)

	if err != nil {
		return event.Event{}, err
	}

	var e event.Event

	err = r.observe("events.update", func() error {
		var sErr error
		e, sErr = scanEvent(r.pool.QueryRow(ctx, `
			UPDATE events
				SET title = $3,
						description = $4,
						category = $5,
						mode = $6,
						start_at = $7,
						end_at = $8,
						location = $9,
						poster_url = $10,
						cert_template_url = $11,
						signature_url = $12,
						custom_fields = $13,
						updated_at = NOW()
			WHERE id = $1 AND organization_id = $2
			RETURNING `+eventColumns,
			id, organizationID,
			req.Title, req.Description, req.Category, req.Mode,
			req.StartAt, req.EndAt, req.Location,
			req.PosterURL, req.CertTemplateURL, req.SignatureURL,
			fieldsJSON,
		))
		return sErr
	})

	if err != nil {
		// if there are no rows matching the id
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		// if it is any other type of error
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) Delete(ctx context.Context, id, organizationID string) error {
	return r.observe("events.delete", func() error {
		tag, err := r.pool.Exec(ctx, `
			DELETE FROM events WHERE id = $1 AND organization_id = $2
		`, id, organizationID)

		if err != nil {
			return err
		}

		// if no rows were deleted as a result return a not found error
		if tag.RowsAffected() == 0 {
			return event.ErrNotFound
		}

		return nil
	})
}

// SetCertificatesSent marks the event as fully dispatched. Only the
// certificate pipeline calls this, and only after a clean full run.
func (r *EventsRepo) SetCertificatesSent(ctx context.Context, id string) error {
	return r.observe("events.set_certificates_sent", func() error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE events
			SET certificates_sent = TRUE,
			    updated_at = NOW()
			WHERE id = $1
		`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return event.ErrNotFound
		}

		return nil
	})
}
