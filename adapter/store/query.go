package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/medkbase/medrag"
)

func (a *Adapter) SaveQueryRecords(ctx context.Context, records ...*medrag.QueryRecord) error {
	if len(records) < 1 {
		return nil
	}

	if err := a.inTxDo(ctx, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if err := execQueryCheckRowsAffected(ctx, tx, insertQueryRecordsQuery{records: records}); err != nil {
			return fmt.Errorf("exec insert query records query failed: %w", err)
		}

		return nil
	}); err != nil {
		return err
	}

	return nil
}

type insertQueryRecordsQuery struct {
	records []*medrag.QueryRecord
}

func (q insertQueryRecordsQuery) SQL() (string, []any) {
	if len(q.records) == 0 {
		return "", nil
	}

	query := `
		insert into "query_record" (
			"id",
			"question",
			"method",
			"answer",
			"success",
			"validation_passed",
			"low_confidence",
			"blocked",
			"attempts",
			"created"
		)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := make([]any, 0, len(q.records)*10)
	args = append(args, recordArgs(q.records[0])...)
	for i := range q.records[1:] {
		query += `, (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		args = append(args, recordArgs(q.records[i+1])...)
	}

	return query, args
}

func recordArgs(r *medrag.QueryRecord) []any {
	return []any{
		r.ID,
		r.Question,
		string(r.Method),
		r.Answer,
		r.Success,
		r.ValidationPassed,
		r.LowConfidence,
		r.Blocked,
		r.Attempts,
		r.Created,
	}
}

func (a *Adapter) ListQueryRecords(ctx context.Context, filter medrag.QueryRecordFilter, params medrag.SortParams) ([]*medrag.QueryRecord, error) {
	var records []*medrag.QueryRecord

	if err := a.inTxDo(ctx, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx *sql.Tx) error {
		query, args := listQueryRecordsQuery{filter: filter, params: params}.SQL()

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query context failed: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			aRecord, err := scanQueryRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, aRecord)
		}

		return rows.Err()
	}); err != nil {
		return nil, err
	}

	return records, nil
}

type listQueryRecordsQuery struct {
	filter medrag.QueryRecordFilter
	params medrag.SortParams
}

func (q listQueryRecordsQuery) SQL() (string, []any) {
	query := `
		select
			"id",
			"question",
			"method",
			"answer",
			"success",
			"validation_passed",
			"low_confidence",
			"blocked",
			"attempts",
			"created"
		from "query_record"
	`

	where, args := queryRecordFilterClauses(q.filter)
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += q.params.SQL()

	return query, args
}

func queryRecordFilterClauses(filter medrag.QueryRecordFilter) ([]string, []any) {
	var (
		where []string
		args  []any
	)

	if filter.Method != "" {
		where = append(where, `"method" = ?`)
		args = append(args, string(filter.Method))
	}
	if filter.Blocked != nil {
		where = append(where, `"blocked" = ?`)
		args = append(args, *filter.Blocked)
	}

	return where, args
}

func scanQueryRecord(row Scannable) (*medrag.QueryRecord, error) {
	var (
		aRecord medrag.QueryRecord
		method  string
	)

	if err := row.Scan(
		&aRecord.ID,
		&aRecord.Question,
		&method,
		&aRecord.Answer,
		&aRecord.Success,
		&aRecord.ValidationPassed,
		&aRecord.LowConfidence,
		&aRecord.Blocked,
		&aRecord.Attempts,
		&aRecord.Created,
	); err != nil {
		return nil, fmt.Errorf("scan query record failed: %w", err)
	}
	aRecord.Method = medrag.RetrievalMethod(method)

	return &aRecord, nil
}
