package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/graph"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const graphSchema = `
CREATE TABLE IF NOT EXISTS graph_elements (
	seq     BIGSERIAL UNIQUE,
	addr    UUID PRIMARY KEY,
	type    INTEGER NOT NULL,
	source  UUID REFERENCES graph_elements(addr) ON DELETE CASCADE,
	target  UUID REFERENCES graph_elements(addr) ON DELETE CASCADE,
	content TEXT,
	idtf    TEXT UNIQUE
);
CREATE INDEX IF NOT EXISTS graph_elements_source_idx ON graph_elements (source, seq);
CREATE INDEX IF NOT EXISTS graph_elements_target_idx ON graph_elements (target, seq);

CREATE OR REPLACE FUNCTION graph_elements_notify() RETURNS trigger AS $$
BEGIN
	IF TG_OP = 'INSERT' THEN
		IF NEW.source IS NOT NULL THEN
			PERFORM pg_notify('graph_events', json_build_object(
				'kind', 'edge_added', 'addr', NEW.addr, 'type', NEW.type,
				'source', NEW.source, 'target', NEW.target)::text);
		END IF;
		RETURN NEW;
	END IF;
	PERFORM pg_notify('graph_events', json_build_object(
		'kind', 'element_erased', 'addr', OLD.addr, 'type', OLD.type,
		'source', OLD.source, 'target', OLD.target)::text);
	RETURN OLD;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS graph_elements_notify ON graph_elements;
CREATE TRIGGER graph_elements_notify
	AFTER INSERT OR DELETE ON graph_elements
	FOR EACH ROW EXECUTE FUNCTION graph_elements_notify();
`

const elementColumns = `addr, type, source, target, content`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresGraphStore keeps elements in one table. Edge endpoints are foreign
// keys with ON DELETE CASCADE, which gives recursive erasure of incident edges.
type PostgresGraphStore struct {
	db      *pgxpool.Pool
	connect func(ctx context.Context) (notifyConn, error)

	listenMu   sync.Mutex
	events     *fanout
	stopListen context.CancelFunc
	listenDone chan struct{}
}

func NewPostgresGraphStore(db *pgxpool.Pool) *PostgresGraphStore {
	return &PostgresGraphStore{db: db, connect: listenOnPool(db)}
}

func (s *PostgresGraphStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, graphSchema)
	return err
}

func (s *PostgresGraphStore) CreateNode(ctx context.Context, t domain.ElementType) (domain.Addr, error) {
	if !t.IsNode() || t.IsVar() {
		return domain.InvalidAddr, fmt.Errorf("%w: node type %d", ErrInvalidElement, t)
	}
	addr := domain.NewAddr()
	_, err := s.db.Exec(ctx,
		`INSERT INTO graph_elements (addr, type) VALUES ($1, $2)`,
		addr.UUID(), int32(t),
	)
	if err != nil {
		return domain.InvalidAddr, err
	}
	return addr, nil
}

func (s *PostgresGraphStore) CreateLink(ctx context.Context, content string) (domain.Addr, error) {
	addr := domain.NewAddr()
	_, err := s.db.Exec(ctx,
		`INSERT INTO graph_elements (addr, type, content) VALUES ($1, $2, $3)`,
		addr.UUID(), int32(domain.LinkConst), content,
	)
	if err != nil {
		return domain.InvalidAddr, err
	}
	return addr, nil
}

func (s *PostgresGraphStore) CreateEdge(ctx context.Context, t domain.ElementType, source, target domain.Addr) (domain.Addr, error) {
	if !t.IsEdge() || t.IsVar() {
		return domain.InvalidAddr, fmt.Errorf("%w: edge type %d", ErrInvalidElement, t)
	}
	addr := domain.NewAddr()
	_, err := s.db.Exec(ctx,
		`INSERT INTO graph_elements (addr, type, source, target) VALUES ($1, $2, $3, $4)`,
		addr.UUID(), int32(t), source.UUID(), target.UUID(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.InvalidAddr, fmt.Errorf("%w: edge endpoint %s -> %s", ErrNotFound, source, target)
		}
		return domain.InvalidAddr, err
	}
	return addr, nil
}

func (s *PostgresGraphStore) EraseElement(ctx context.Context, addr domain.Addr) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM graph_elements WHERE addr = $1`, addr.UUID())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresGraphStore) EdgeExists(ctx context.Context, source, target domain.Addr, t domain.ElementType) (bool, error) {
	want := int32(t &^ (domain.TypeConst | domain.TypeVar))
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM graph_elements
			WHERE source = $1 AND target = $2 AND (type & $3) = $3
		)`,
		source.UUID(), target.UUID(), want,
	).Scan(&exists)
	return exists, err
}

func (s *PostgresGraphStore) Element(ctx context.Context, addr domain.Addr) (*domain.Element, error) {
	return pgReader{q: s.db}.Element(ctx, addr)
}

func (s *PostgresGraphStore) OutEdges(ctx context.Context, addr domain.Addr) ([]domain.Element, error) {
	return pgReader{q: s.db}.OutEdges(ctx, addr)
}

func (s *PostgresGraphStore) InEdges(ctx context.Context, addr domain.Addr) ([]domain.Element, error) {
	return pgReader{q: s.db}.InEdges(ctx, addr)
}

// SearchTemplate runs the matcher inside a read-only repeatable-read
// transaction so that all hops observe one snapshot.
func (s *PostgresGraphStore) SearchTemplate(ctx context.Context, tmpl *domain.Template, limit int) ([]domain.Binding, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin search: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results, err := graph.Search(ctx, pgReader{q: tx}, tmpl, limit)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit search: %w", err)
	}
	return results, nil
}

func (s *PostgresGraphStore) ResolveIdentifier(ctx context.Context, idtf string, t domain.ElementType) (domain.Addr, error) {
	if idtf == "" {
		return domain.InvalidAddr, fmt.Errorf("%w: empty identifier", ErrInvalidElement)
	}
	var id uuid.UUID
	err := s.db.QueryRow(ctx,
		`WITH ins AS (
			INSERT INTO graph_elements (addr, type, idtf) VALUES ($1, $2, $3)
			ON CONFLICT (idtf) DO NOTHING
			RETURNING addr
		)
		SELECT addr FROM ins
		UNION ALL
		SELECT addr FROM graph_elements WHERE idtf = $3
		LIMIT 1`,
		uuid.New(), int32(t), idtf,
	).Scan(&id)
	if err != nil {
		return domain.InvalidAddr, err
	}
	return domain.Addr(id), nil
}

func (s *PostgresGraphStore) Identifier(ctx context.Context, addr domain.Addr) (string, error) {
	var idtf *string
	err := s.db.QueryRow(ctx,
		`SELECT idtf FROM graph_elements WHERE addr = $1`, addr.UUID(),
	).Scan(&idtf)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if idtf == nil {
		return "", nil
	}
	return *idtf, nil
}

type pgReader struct {
	q querier
}

func (r pgReader) Element(ctx context.Context, addr domain.Addr) (*domain.Element, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+elementColumns+` FROM graph_elements WHERE addr = $1`, addr.UUID())
	el, err := scanElement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return el, nil
}

func (r pgReader) OutEdges(ctx context.Context, addr domain.Addr) ([]domain.Element, error) {
	return r.edges(ctx, `SELECT `+elementColumns+` FROM graph_elements WHERE source = $1 ORDER BY seq`, addr)
}

func (r pgReader) InEdges(ctx context.Context, addr domain.Addr) ([]domain.Element, error) {
	return r.edges(ctx, `SELECT `+elementColumns+` FROM graph_elements WHERE target = $1 ORDER BY seq`, addr)
}

func (r pgReader) edges(ctx context.Context, query string, addr domain.Addr) ([]domain.Element, error) {
	rows, err := r.q.Query(ctx, query, addr.UUID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.Element
	for rows.Next() {
		el, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, *el)
	}
	return edges, rows.Err()
}

func scanElement(row pgx.Row) (*domain.Element, error) {
	var (
		addr           uuid.UUID
		typ            int32
		source, target *uuid.UUID
		content        *string
	)
	if err := row.Scan(&addr, &typ, &source, &target, &content); err != nil {
		return nil, err
	}
	el := &domain.Element{Addr: domain.Addr(addr), Type: domain.ElementType(typ)}
	if source != nil {
		el.Source = domain.Addr(*source)
	}
	if target != nil {
		el.Target = domain.Addr(*target)
	}
	if content != nil {
		el.Content = *content
	}
	return el, nil
}

var (
	_ domain.GraphStore = (*PostgresGraphStore)(nil)
	_ domain.Subscriber = (*PostgresGraphStore)(nil)
	_ graph.Reader      = pgReader{}
)
