package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/zheng/codegraph/internal/graph"
)

const nodeColumns = `id, label, type, file, line, metadata`

// meta keys
const (
	metaProject     = "project"
	metaGeneratedAt = "generated_at"
	metaStats       = "stats"
	metaNodeColors  = "node_colors"
	metaEdgeColors  = "edge_colors"
)

// SaveSnapshot replaces the stored snapshot with s in a single transaction.
// Nodes repeating an earlier ID are skipped.
func (db *DB) SaveSnapshot(ctx context.Context, s *graph.Snapshot) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM edges; DELETE FROM nodes; DELETE FROM meta;"); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	header := map[string]any{
		metaProject:     s.Project,
		metaGeneratedAt: s.GeneratedAt,
		metaStats:       s.Stats,
		metaNodeColors:  s.NodeColors,
		metaEdgeColors:  s.EdgeColors,
	}
	for key, v := range header {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, key, string(raw)); err != nil {
			return fmt.Errorf("insert %s: %w", key, err)
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO nodes (seq, `+nodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare nodes: %w", err)
	}
	defer nodeStmt.Close()
	for i, n := range s.Nodes {
		meta, err := n.Metadata.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := nodeStmt.ExecContext(ctx, i, n.ID, n.Label, string(n.Type), n.File, n.Line, string(meta)); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edges (seq, source, target, type, metadata) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edges: %w", err)
	}
	defer edgeStmt.Close()
	for i, e := range s.Edges {
		meta, err := e.Metadata.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := edgeStmt.ExecContext(ctx, i, e.Source, e.Target, string(e.Type), string(meta)); err != nil {
			return fmt.Errorf("insert edge %s->%s: %w", e.Source, e.Target, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadSnapshot reads the stored snapshot back in its original order
func (db *DB) LoadSnapshot(ctx context.Context) (*graph.Snapshot, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, err
	}
	header := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, err
		}
		header[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, ErrNoSnapshot
	}

	s := &graph.Snapshot{}
	for key, dst := range map[string]any{
		metaProject:     &s.Project,
		metaGeneratedAt: &s.GeneratedAt,
		metaStats:       &s.Stats,
		metaNodeColors:  &s.NodeColors,
		metaEdgeColors:  &s.EdgeColors,
	} {
		raw, ok := header[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return nil, fmt.Errorf("%w: meta %s: %w", graph.ErrMalformedSnapshot, key, err)
		}
	}

	nodeRows, err := db.conn.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer nodeRows.Close()
	if s.Nodes, err = scanNodes(nodeRows); err != nil {
		return nil, err
	}

	edgeRows, err := db.conn.QueryContext(ctx, `SELECT source, target, type, metadata FROM edges ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer edgeRows.Close()
	if s.Edges, err = scanEdges(edgeRows); err != nil {
		return nil, err
	}
	return s, nil
}

// GetNodeByID returns a node by its ID
func (db *DB) GetNodeByID(ctx context.Context, id string) (*graph.Node, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	var n graph.Node
	var meta string
	if err := row.Scan(&n.ID, &n.Label, &n.Type, &n.File, &n.Line, &meta); err != nil {
		return nil, err
	}
	if err := n.Metadata.UnmarshalJSON([]byte(meta)); err != nil {
		return nil, err
	}
	return &n, nil
}

// FindNodesByPattern returns nodes whose label or file contains pattern.
// Results are sorted by match quality: exact label > label suffix > file
// suffix > anywhere, then by label length.
func (db *DB) FindNodesByPattern(ctx context.Context, pattern string) ([]graph.Node, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes
		 WHERE label LIKE ? OR file LIKE ?
		 ORDER BY
			CASE
				WHEN label = ? THEN 0
				WHEN label LIKE '%' || ? THEN 1
				WHEN file LIKE '%' || ? THEN 2
				ELSE 3
			END,
			length(label) ASC,
			seq ASC`,
		"%"+pattern+"%", "%"+pattern+"%", pattern, pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetUpstreamDependents returns every node that reaches id through incoming
// edges, nearest first, up to maxDepth hops. If maxDepth is 0 there is no
// depth limit.
func (db *DB) GetUpstreamDependents(ctx context.Context, id string, maxDepth int) ([]graph.Node, error) {
	var query string
	var args []any

	if maxDepth == 0 {
		// UNION on id alone terminates on cycles
		query = `
		WITH RECURSIVE dependents(id) AS (
			SELECT e.source FROM edges e WHERE e.target = ?
			UNION
			SELECT e.source
			FROM edges e
			JOIN dependents d ON e.target = d.id
		)
		SELECT n.id, n.label, n.type, n.file, n.line, n.metadata
		FROM nodes n
		JOIN dependents r ON r.id = n.id
		WHERE n.id != ?
		ORDER BY n.seq ASC`
		args = []any{id, id}
	} else {
		query = `
		WITH RECURSIVE dependents(id, depth) AS (
			SELECT e.source, 1 FROM edges e WHERE e.target = ?
			UNION
			SELECT e.source, d.depth + 1
			FROM edges e
			JOIN dependents d ON e.target = d.id
			WHERE d.depth < ?
		)
		SELECT n.id, n.label, n.type, n.file, n.line, n.metadata
		FROM nodes n
		JOIN (SELECT id, MIN(depth) AS depth FROM dependents GROUP BY id) r ON r.id = n.id
		WHERE n.id != ?
		ORDER BY r.depth ASC, n.seq ASC`
		args = []any{id, maxDepth, id}
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetStats returns database statistics
func (db *DB) GetStats(ctx context.Context) (nodeCount, edgeCount int64, err error) {
	err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&nodeCount)
	if err != nil {
		return
	}
	err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&edgeCount)
	return
}

// Helper functions

func scanNodes(rows *sql.Rows) ([]graph.Node, error) {
	var nodes []graph.Node
	for rows.Next() {
		var n graph.Node
		var meta string
		if err := rows.Scan(&n.ID, &n.Label, &n.Type, &n.File, &n.Line, &meta); err != nil {
			return nil, err
		}
		if err := n.Metadata.UnmarshalJSON([]byte(meta)); err != nil {
			return nil, fmt.Errorf("%w: node %s metadata: %w", graph.ErrMalformedSnapshot, n.ID, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func scanEdges(rows *sql.Rows) ([]graph.Edge, error) {
	var edges []graph.Edge
	for rows.Next() {
		var e graph.Edge
		var meta string
		if err := rows.Scan(&e.Source, &e.Target, &e.Type, &meta); err != nil {
			return nil, err
		}
		if err := e.Metadata.UnmarshalJSON([]byte(meta)); err != nil {
			return nil, fmt.Errorf("%w: edge metadata: %w", graph.ErrMalformedSnapshot, err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
