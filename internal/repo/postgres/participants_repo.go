package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/geocoder89/smarteventhub/internal/domain/participant"
	"github.com/geocoder89/smarteventhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ParticipantsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewParticipantsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ParticipantsRepo {
	return &ParticipantsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *ParticipantsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const participantColumns = `id, event_id, name, email, answers, created_at, updated_at`

func scanParticipant(row pgx.Row) (participant.Participant, error) {
	var p participant.Participant
	var answersJSON []byte

	err := row.Scan(&p.ID, &p.EventID, &p.Name, &p.Email, &answersJSON, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return participant.Participant{}, err
	}

	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &p.Answers); err != nil {
			return participant.Participant{}, err
		}
	}

	return p, nil
}

func (r *ParticipantsRepo) Create(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	answersJSON, err := json.Marshal(p.Answers)

	if err != nil {
		return participant.Participant{}, err
	}

	err = r.observe("participants.create", func() error {
		_, execErr := r.pool.Exec(ctx, `
			INSERT INTO participants (id, event_id, name, email, answers, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, p.ID, p.EventID, p.Name, p.Email, answersJSON, p.CreatedAt, p.UpdatedAt)
		return execErr
	})

	if err != nil {
		// one registration per email per event
		if IsUniqueViolation(err) {
			return participant.Participant{}, participant.ErrAlreadyRegistered
		}
		return participant.Participant{}, err
	}

	return p, nil
}

// ListByEvent returns the event's participants most recent first, the
// event's canonical listing order.
func (r *ParticipantsRepo) ListByEvent(ctx context.Context, eventID string) ([]participant.Participant, error) {
	return r.list(ctx, "participants.list_by_event", `
		SELECT `+participantColumns+`
		FROM participants
		WHERE event_id = $1
		ORDER BY created_at DESC, id DESC
	`, eventID)
}

// ListByIDs keeps only ids that belong to the event; unknown or foreign
// ids are dropped silently and the result keeps listing order.
func (r *ParticipantsRepo) ListByIDs(ctx context.Context, eventID string, ids []string) ([]participant.Participant, error) {
	return r.list(ctx, "participants.list_by_ids", `
		SELECT `+participantColumns+`
		FROM participants
		WHERE event_id = $1 AND id = ANY($2)
		ORDER BY created_at DESC, id DESC
	`, eventID, ids)
}

func (r *ParticipantsRepo) list(ctx context.Context, op, query string, args ...interface{}) ([]participant.Participant, error) {
	var output []participant.Participant

	err := r.observe(op, func() error {
		rows, qErr := r.pool.Query(ctx, query, args...)

		if qErr != nil {
			return qErr
		}

		defer rows.Close()

		output = make([]participant.Participant, 0, 16)

		for rows.Next() {
			p, sErr := scanParticipant(rows)

			if sErr != nil {
				return sErr
			}

			output = append(output, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *ParticipantsRepo) CountForEvent(ctx context.Context, eventID string) (int, error) {
	var count int

	err := r.observe("participants.count_for_event", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM participants WHERE event_id = $1`, eventID).Scan(&count)
	})

	if err != nil {
		return 0, err
	}

	return count, nil
}
