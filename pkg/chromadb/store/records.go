package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// record is one stored embedding row, without its vector.
type record struct {
	rowID    int64
	id       string
	document string
	metadata map[string]any
}

// Add inserts new records. Any id already present in the collection fails
// the whole batch with ErrDuplicateID.
func (s *Store) Add(ctx context.Context, collectionID string, req *AddRequest) error {
	return s.write(ctx, collectionID, req, false)
}

// Upsert inserts new records and replaces existing ones.
func (s *Store) Upsert(ctx context.Context, collectionID string, req *AddRequest) error {
	return s.write(ctx, collectionID, req, true)
}

func (s *Store) write(ctx context.Context, collectionID string, req *AddRequest, upsert bool) error {
	dim, err := validateAdd(req)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	col, err := getCollection(ctx, tx, collectionID)
	if err != nil {
		return err
	}

	// The first embedding written fixes the collection's dimension.
	if col.Dimension == nil {
		create := fmt.Sprintf(
			`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d] distance_metric=%s)`,
			vecTable(col.ID), dim, col.Space(),
		)
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("creating vec0 table: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE collections SET dimension = ? WHERE id = ?`, dim, col.ID,
		); err != nil {
			return fmt.Errorf("fixing collection dimension: %w", err)
		}
	} else if *col.Dimension != dim {
		return fmt.Errorf("%w: collection %s expects %d, got %d", ErrDimensionMismatch, col.Name, *col.Dimension, dim)
	}

	table := vecTable(col.ID)
	for i, id := range req.IDs {
		blob := serializeFloat32(req.Embeddings[i])

		var doc sql.NullString
		if len(req.Documents) > 0 {
			doc = sql.NullString{String: req.Documents[i], Valid: true}
		}
		meta := "{}"
		if len(req.Metadatas) > 0 {
			if meta, err = marshalMetadata(req.Metadatas[i]); err != nil {
				return err
			}
		}

		var rowID int64
		err := tx.QueryRowContext(ctx,
			`SELECT rowid FROM embeddings WHERE collection_id = ? AND doc_id = ?`, col.ID, id,
		).Scan(&rowID)

		switch {
		case err == nil:
			if !upsert {
				return fmt.Errorf("%w: %s", ErrDuplicateID, id)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE embeddings SET document = ?, metadata = ? WHERE rowid = ?`,
				doc, meta, rowID,
			); err != nil {
				return fmt.Errorf("updating record %s: %w", id, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, table), rowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for %s: %w", id, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			result, err := tx.ExecContext(ctx,
				`INSERT INTO embeddings(collection_id, doc_id, document, metadata) VALUES (?, ?, ?, ?)`,
				col.ID, id, doc, meta,
			)
			if err != nil {
				return fmt.Errorf("inserting record %s: %w", id, err)
			}
			if rowID, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("getting rowid for %s: %w", id, err)
			}
		default:
			return fmt.Errorf("checking for existing record %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, table),
			rowID, blob,
		); err != nil {
			return fmt.Errorf("inserting embedding for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("wrote records",
		"collection", col.Name,
		"count", len(req.IDs),
		"upsert", upsert,
	)
	return nil
}

// validateAdd checks that the request slices are parallel and that every
// embedding has the same non-zero dimension, which it returns.
func validateAdd(req *AddRequest) (int, error) {
	if req == nil || len(req.IDs) == 0 {
		return 0, fmt.Errorf("%w: ids are required", ErrInvalidArgument)
	}
	n := len(req.IDs)
	if len(req.Embeddings) != n {
		return 0, fmt.Errorf("%w: got %d embeddings for %d ids", ErrInvalidArgument, len(req.Embeddings), n)
	}
	if len(req.Documents) != 0 && len(req.Documents) != n {
		return 0, fmt.Errorf("%w: got %d documents for %d ids", ErrInvalidArgument, len(req.Documents), n)
	}
	if len(req.Metadatas) != 0 && len(req.Metadatas) != n {
		return 0, fmt.Errorf("%w: got %d metadatas for %d ids", ErrInvalidArgument, len(req.Metadatas), n)
	}

	seen := make(map[string]struct{}, n)
	for _, id := range req.IDs {
		if id == "" {
			return 0, fmt.Errorf("%w: ids must be non-empty", ErrInvalidArgument)
		}
		if _, dup := seen[id]; dup {
			return 0, fmt.Errorf("%w: %s appears twice in request", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}

	dim := len(req.Embeddings[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: embeddings must be non-empty", ErrInvalidArgument)
	}
	for i, emb := range req.Embeddings {
		if len(emb) != dim {
			return 0, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(emb), dim)
		}
	}
	return dim, nil
}

// Query returns, for each query embedding, the NResults nearest records that
// satisfy Where, ordered by ascending distance.
func (s *Store) Query(ctx context.Context, collectionID string, req *QueryRequest) (*QueryResponse, error) {
	if req == nil || len(req.QueryEmbeddings) == 0 {
		return nil, fmt.Errorf("%w: query_embeddings are required", ErrInvalidArgument)
	}
	if err := validateWhere(req.Where); err != nil {
		return nil, err
	}

	n := req.NResults
	if n <= 0 {
		n = defaultNResults
	}
	include := req.Include
	if len(include) == 0 {
		include = defaultQueryInclude
	}

	col, err := getCollection(ctx, s.db, collectionID)
	if err != nil {
		return nil, err
	}

	total, err := count(ctx, s.db, col.ID)
	if err != nil {
		return nil, err
	}

	// With a filter the KNN scan covers the whole collection and results
	// are trimmed after matching.
	k := n
	if len(req.Where) > 0 || k > total {
		k = total
	}

	resp := &QueryResponse{IDs: make([][]string, 0, len(req.QueryEmbeddings))}
	for _, q := range req.QueryEmbeddings {
		if col.Dimension != nil && len(q) != *col.Dimension {
			return nil, fmt.Errorf("%w: collection %s expects %d, got %d", ErrDimensionMismatch, col.Name, *col.Dimension, len(q))
		}

		var hits []queryHit
		if col.Dimension != nil && k > 0 {
			hits, err = s.knn(ctx, col.ID, q, k, req.Where, n)
			if err != nil {
				return nil, err
			}
		}

		ids := make([]string, 0, len(hits))
		docs := make([]string, 0, len(hits))
		metas := make([]map[string]any, 0, len(hits))
		dists := make([]float32, 0, len(hits))
		embs := make([][]float32, 0, len(hits))
		for _, h := range hits {
			ids = append(ids, h.id)
			docs = append(docs, h.document)
			metas = append(metas, h.metadata)
			dists = append(dists, h.distance)
			embs = append(embs, h.embedding)
		}

		resp.IDs = append(resp.IDs, ids)
		if includes(include, IncludeDocuments) {
			resp.Documents = append(resp.Documents, docs)
		}
		if includes(include, IncludeMetadatas) {
			resp.Metadatas = append(resp.Metadatas, metas)
		}
		if includes(include, IncludeDistances) {
			resp.Distances = append(resp.Distances, dists)
		}
		if includes(include, IncludeEmbeddings) {
			resp.Embeddings = append(resp.Embeddings, embs)
		}
	}

	s.logger.Debug("queried collection",
		"collection", col.Name,
		"queries", len(req.QueryEmbeddings),
		"n_results", n,
	)
	return resp, nil
}

type queryHit struct {
	record
	distance  float32
	embedding []float32
}

func (s *Store) knn(ctx context.Context, collectionID string, q []float32, k int, where map[string]any, n int) ([]queryHit, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			e.rowid,
			e.doc_id,
			e.document,
			e.metadata,
			v.distance,
			v.embedding
		FROM %s v
		INNER JOIN embeddings e ON e.rowid = v.rowid
		WHERE v.embedding MATCH ?
			AND v.k = ?
		ORDER BY v.distance
	`, vecTable(collectionID)), serializeFloat32(q), k)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var hits []queryHit
	for rows.Next() {
		var (
			h        queryHit
			doc      sql.NullString
			meta     string
			distance float64
			blob     []byte
		)
		if err := rows.Scan(&h.rowID, &h.id, &doc, &meta, &distance, &blob); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		if h.metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, err
		}
		if len(where) > 0 && !matchWhere(h.metadata, where) {
			continue
		}
		h.document = doc.String
		h.distance = float32(distance)
		if h.embedding, err = deserializeFloat32(blob); err != nil {
			return nil, err
		}

		hits = append(hits, h)
		if len(hits) == n {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}
	return hits, nil
}

// Get returns records selected by ids and/or where. When ids are given the
// result follows their order; otherwise records are in insertion order.
func (s *Store) Get(ctx context.Context, collectionID string, req *GetRequest) (*GetResponse, error) {
	if req == nil {
		req = &GetRequest{}
	}
	if err := validateWhere(req.Where); err != nil {
		return nil, err
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must be non-negative", ErrInvalidArgument)
	}
	include := req.Include
	if len(include) == 0 {
		include = defaultGetInclude
	}

	col, err := getCollection(ctx, s.db, collectionID)
	if err != nil {
		return nil, err
	}

	recs, err := selectRecords(ctx, s.db, col.ID, req.IDs, req.Where)
	if err != nil {
		return nil, err
	}

	if req.Offset > 0 {
		if req.Offset >= len(recs) {
			recs = nil
		} else {
			recs = recs[req.Offset:]
		}
	}
	if req.Limit > 0 && req.Limit < len(recs) {
		recs = recs[:req.Limit]
	}

	resp := &GetResponse{IDs: make([]string, 0, len(recs))}
	if includes(include, IncludeDocuments) {
		resp.Documents = make([]string, 0, len(recs))
	}
	if includes(include, IncludeMetadatas) {
		resp.Metadatas = make([]map[string]any, 0, len(recs))
	}
	wantEmb := includes(include, IncludeEmbeddings)
	if wantEmb {
		resp.Embeddings = make([][]float32, 0, len(recs))
	}

	for _, r := range recs {
		resp.IDs = append(resp.IDs, r.id)
		if resp.Documents != nil {
			resp.Documents = append(resp.Documents, r.document)
		}
		if resp.Metadatas != nil {
			resp.Metadatas = append(resp.Metadatas, r.metadata)
		}
		if wantEmb {
			var blob []byte
			if err := s.db.QueryRowContext(ctx,
				fmt.Sprintf(`SELECT embedding FROM %s WHERE rowid = ?`, vecTable(col.ID)), r.rowID,
			).Scan(&blob); err != nil {
				return nil, fmt.Errorf("reading embedding for %s: %w", r.id, err)
			}
			emb, err := deserializeFloat32(blob)
			if err != nil {
				return nil, err
			}
			resp.Embeddings = append(resp.Embeddings, emb)
		}
	}

	return resp, nil
}

// Delete removes records selected by ids and/or where. Unknown ids are
// ignored.
func (s *Store) Delete(ctx context.Context, collectionID string, req *DeleteRequest) error {
	if req == nil || (len(req.IDs) == 0 && len(req.Where) == 0) {
		return fmt.Errorf("%w: ids or where are required", ErrInvalidArgument)
	}
	if err := validateWhere(req.Where); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	col, err := getCollection(ctx, tx, collectionID)
	if err != nil {
		return err
	}

	recs, err := selectRecords(ctx, tx, col.ID, req.IDs, req.Where)
	if err != nil {
		return err
	}

	for _, r := range recs {
		if col.Dimension != nil {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, vecTable(col.ID)), r.rowID,
			); err != nil {
				return fmt.Errorf("deleting embedding for %s: %w", r.id, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE rowid = ?`, r.rowID); err != nil {
			return fmt.Errorf("deleting record %s: %w", r.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("deleted records",
		"collection", col.Name,
		"count", len(recs),
	)
	return nil
}

// selectRecords loads matching rows and closes the cursor before returning,
// since the single connection cannot serve a second statement while rows
// are open.
func selectRecords(ctx context.Context, q queryer, collectionID string, ids []string, where map[string]any) ([]record, error) {
	query := `SELECT rowid, doc_id, document, metadata FROM embeddings WHERE collection_id = ?`
	args := []any{collectionID}
	if len(ids) > 0 {
		query += fmt.Sprintf(` AND doc_id IN (%s)`, placeholders(len(ids)))
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY rowid`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var recs []record
	for rows.Next() {
		var (
			r    record
			doc  sql.NullString
			meta string
		)
		if err := rows.Scan(&r.rowID, &r.id, &doc, &meta); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if r.metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, err
		}
		if len(where) > 0 && !matchWhere(r.metadata, where) {
			continue
		}
		r.document = doc.String
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	if len(ids) == 0 {
		return recs, nil
	}

	byID := make(map[string]record, len(recs))
	for _, r := range recs {
		byID[r.id] = r
	}
	ordered := make([]record, 0, len(recs))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
			delete(byID, id)
		}
	}
	return ordered, nil
}

// serializeFloat32 converts a float32 slice to the little-endian BLOB
// format sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
