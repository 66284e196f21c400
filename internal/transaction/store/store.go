package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/guppyfunds/consumer/internal/transaction"
)

// Tables names the raw table of each bank.
type Tables struct {
	Amex  string
	Wells string
}

type Store struct {
	pool   *pgxpool.Pool
	tables Tables
}

func New(pool *pgxpool.Pool, tables Tables) *Store {
	return &Store{pool: pool, tables: tables}
}

// table returns the quoted table name for bank.
func (s *Store) table(bank transaction.Bank) (string, error) {
	name, err := s.tableName(bank)
	if err != nil {
		return "", err
	}

	return pgx.Identifier{name}.Sanitize(), nil
}

func (s *Store) tableName(bank transaction.Bank) (string, error) {
	switch bank {
	case transaction.BankAmex:
		return s.tables.Amex, nil
	case transaction.BankWellsFargo:
		return s.tables.Wells, nil
	}

	return "", fmt.Errorf("%w: %q", transaction.ErrUnknownBank, bank)
}

func (s *Store) ExistingHashes(ctx context.Context, bank transaction.Bank, hashes []string) (map[string]struct{}, error) {
	found := make(map[string]struct{})

	if len(hashes) == 0 {
		return found, nil
	}

	tbl, err := s.table(bank)
	if err != nil {
		return nil, err
	}

	query := `SELECT raw_hash FROM ` + tbl + ` WHERE raw_hash = ANY($1)`

	rows, err := s.pool.Query(ctx, query, hashes)
	if err != nil {
		return nil, fmt.Errorf("finding existing hashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scanning hash: %w", err)
		}

		found[h] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hash rows: %w", err)
	}

	return found, nil
}

// InsertMany writes records in one statement. Rows whose hash already exists
// are skipped by the unique index and reported as duplicate-key write errors
// at their batch position; the rest of the batch is still written.
func (s *Store) InsertMany(ctx context.Context, bank transaction.Bank, records []*transaction.Record) (*transaction.WriteResult, error) {
	if len(records) == 0 {
		return &transaction.WriteResult{}, nil
	}

	for _, r := range records {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
	}

	var (
		query string
		args  []any
		err   error
	)

	switch bank {
	case transaction.BankAmex:
		query, args, err = s.amexInsert(records)
	case transaction.BankWellsFargo:
		query, args, err = s.wellsInsert(records)
	default:
		err = fmt.Errorf("%w: %q", transaction.ErrUnknownBank, bank)
	}

	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inserting %s records: %w", bank, describe(err))
	}
	defer rows.Close()

	inserted := make(map[string]struct{}, len(records))

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning inserted id: %w", err)
		}

		inserted[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inserting %s records: %w", bank, describe(err))
	}

	return writeResult(records, inserted), nil
}

// writeResult lists inserted ids in batch order and marks every record that
// was not inserted as a duplicate key.
func writeResult(records []*transaction.Record, inserted map[string]struct{}) *transaction.WriteResult {
	res := &transaction.WriteResult{InsertedIDs: make([]string, 0, len(inserted))}

	for i, r := range records {
		id := r.ID.String()
		if _, ok := inserted[id]; ok {
			res.InsertedIDs = append(res.InsertedIDs, id)
			continue
		}

		res.WriteErrors = append(res.WriteErrors, transaction.WriteError{
			Index:   i,
			Code:    transaction.CodeDuplicateKey,
			Message: fmt.Sprintf("duplicate key value violates unique constraint on raw_hash: %s", r.RawHash),
		})
	}

	return res
}

func (s *Store) amexInsert(records []*transaction.Record) (string, []any, error) {
	tbl, err := s.table(transaction.BankAmex)
	if err != nil {
		return "", nil, err
	}

	n := len(records)
	cols := amexColumns{
		ids: make([]string, n), dates: make([]string, n), descriptions: make([]string, n),
		cardMembers: make([]string, n), accounts: make([]string, n), amounts: make([]string, n),
		extended: make([]*string, n), statementAs: make([]*string, n), addresses: make([]*string, n),
		cityStates: make([]*string, n), zips: make([]*string, n), countries: make([]*string, n),
		references: make([]*string, n), categories: make([]*string, n), hashes: make([]*string, n),
		createdAt: make([]time.Time, n),
	}

	for i, r := range records {
		if r.Amex == nil {
			return "", nil, fmt.Errorf("record %d: missing amex fields", i)
		}

		cols.ids[i] = r.ID.String()
		cols.dates[i] = r.Date
		cols.descriptions[i] = r.Description
		cols.cardMembers[i] = r.Amex.CardMember
		cols.accounts[i] = r.Amex.AccountNumber
		cols.amounts[i] = r.Amount.String()
		cols.extended[i] = r.Amex.ExtendedDetails
		cols.statementAs[i] = r.Amex.AppearsOnStatementAs
		cols.addresses[i] = r.Amex.Address
		cols.cityStates[i] = r.Amex.CityState
		cols.zips[i] = r.Amex.ZipCode
		cols.countries[i] = r.Amex.Country
		cols.references[i] = r.Amex.Reference
		cols.categories[i] = r.Amex.Category
		cols.hashes[i] = nullable(r.RawHash)
		cols.createdAt[i] = r.CreatedAt
	}

	query := `
		INSERT INTO ` + tbl + ` (
			id, date, description, card_member, account_number, amount,
			extended_details, appears_on_statement_as, address, city_state,
			zip_code, country, reference, category, raw_hash, created_at
		)
		SELECT id::uuid, date, description, card_member, account_number, amount::numeric,
			extended_details, appears_on_statement_as, address, city_state,
			zip_code, country, reference, category, raw_hash, created_at
		FROM unnest(
			$1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::text[],
			$7::text[], $8::text[], $9::text[], $10::text[],
			$11::text[], $12::text[], $13::text[], $14::text[], $15::text[], $16::timestamptz[]
		) AS t(
			id, date, description, card_member, account_number, amount,
			extended_details, appears_on_statement_as, address, city_state,
			zip_code, country, reference, category, raw_hash, created_at
		)
		ON CONFLICT (raw_hash) WHERE raw_hash IS NOT NULL DO NOTHING
		RETURNING id::text
	`

	args := []any{
		cols.ids, cols.dates, cols.descriptions, cols.cardMembers, cols.accounts, cols.amounts,
		cols.extended, cols.statementAs, cols.addresses, cols.cityStates,
		cols.zips, cols.countries, cols.references, cols.categories, cols.hashes, cols.createdAt,
	}

	return query, args, nil
}

type amexColumns struct {
	ids, dates, descriptions, cardMembers, accounts, amounts []string

	extended, statementAs, addresses, cityStates, zips, countries, references, categories, hashes []*string

	createdAt []time.Time
}

func (s *Store) wellsInsert(records []*transaction.Record) (string, []any, error) {
	tbl, err := s.table(transaction.BankWellsFargo)
	if err != nil {
		return "", nil, err
	}

	n := len(records)
	ids := make([]string, n)
	dates := make([]string, n)
	amounts := make([]string, n)
	statuses := make([]string, n)
	unknown := make([]*string, n)
	descriptions := make([]string, n)
	hashes := make([]*string, n)
	createdAt := make([]time.Time, n)

	for i, r := range records {
		if r.Wells == nil {
			return "", nil, fmt.Errorf("record %d: missing wells fargo fields", i)
		}

		ids[i] = r.ID.String()
		dates[i] = r.Date
		amounts[i] = r.Amount.String()
		statuses[i] = r.Wells.Status
		unknown[i] = r.Wells.UnknownField
		descriptions[i] = r.Description
		hashes[i] = nullable(r.RawHash)
		createdAt[i] = r.CreatedAt
	}

	query := `
		INSERT INTO ` + tbl + ` (id, date, amount, status, unknown_field, description, raw_hash, created_at)
		SELECT id::uuid, date, amount::numeric, status, unknown_field, description, raw_hash, created_at
		FROM unnest(
			$1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::text[], $7::text[], $8::timestamptz[]
		) AS t(id, date, amount, status, unknown_field, description, raw_hash, created_at)
		ON CONFLICT (raw_hash) WHERE raw_hash IS NOT NULL DO NOTHING
		RETURNING id::text
	`

	return query, []any{ids, dates, amounts, statuses, unknown, descriptions, hashes, createdAt}, nil
}

func (s *Store) HashExists(ctx context.Context, bank transaction.Bank, hash string) (bool, error) {
	tbl, err := s.table(bank)
	if err != nil {
		return false, err
	}

	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM ` + tbl + ` WHERE raw_hash = $1)`
	if err := s.pool.QueryRow(ctx, query, hash).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking hash: %w", err)
	}

	return exists, nil
}

func (s *Store) Count(ctx context.Context, bank transaction.Bank) (int64, error) {
	tbl, err := s.table(bank)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+tbl).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s records: %w", bank, err)
	}

	return n, nil
}

// Stats sizes bank's table. TotalBytes includes indexes and toast.
func (s *Store) Stats(ctx context.Context, bank transaction.Bank) (*transaction.TableStats, error) {
	tbl, err := s.table(bank)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT COUNT(*),
			COALESCE(AVG(pg_column_size(t.*)), 0)::bigint,
			pg_total_relation_size($1::text::regclass),
			(SELECT COUNT(*) FROM pg_index WHERE indrelid = $1::text::regclass)
		FROM ` + tbl + ` t`

	var st transaction.TableStats
	if err := s.pool.QueryRow(ctx, query, tbl).Scan(&st.Rows, &st.AvgRowBytes, &st.TotalBytes, &st.IndexCount); err != nil {
		return nil, fmt.Errorf("sizing %s table: %w", bank, err)
	}

	return &st, nil
}

func (s *Store) Indexes(ctx context.Context, bank transaction.Bank) ([]transaction.Index, error) {
	name, err := s.tableName(bank)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT indexname, indexdef FROM pg_indexes
		WHERE schemaname = current_schema() AND tablename = $1
		ORDER BY indexname`, name)
	if err != nil {
		return nil, fmt.Errorf("listing %s indexes: %w", bank, err)
	}

	indexes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (transaction.Index, error) {
		var idx transaction.Index
		err := row.Scan(&idx.Name, &idx.Definition)

		return idx, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s indexes: %w", bank, err)
	}

	return indexes, nil
}

// Sample returns up to limit of the most recently stored records.
func (s *Store) Sample(ctx context.Context, bank transaction.Bank, limit int) ([]*transaction.Record, error) {
	tbl, err := s.table(bank)
	if err != nil {
		return nil, err
	}

	var query string

	switch bank {
	case transaction.BankAmex:
		query = `SELECT id::text, date, amount::text, description, raw_hash, created_at,
				card_member, account_number, extended_details, appears_on_statement_as,
				address, city_state, zip_code, country, reference, category
			FROM ` + tbl + ` ORDER BY created_at DESC LIMIT $1`
	default:
		query = `SELECT id::text, date, amount::text, description, raw_hash, created_at,
				status, unknown_field
			FROM ` + tbl + ` ORDER BY created_at DESC LIMIT $1`
	}

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sampling %s records: %w", bank, err)
	}
	defer rows.Close()

	var records []*transaction.Record

	for rows.Next() {
		r, err := scanRecord(rows, bank)
		if err != nil {
			return nil, fmt.Errorf("scanning %s record: %w", bank, err)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s records: %w", bank, err)
	}

	return records, nil
}

// scanRecord reads one row in the column order used by Sample.
func scanRecord(row pgx.Row, bank transaction.Bank) (*transaction.Record, error) {
	var (
		r         = transaction.Record{Bank: bank}
		id        string
		amount    string
		hash      *string
		amexCols  transaction.AmexFields
		wellsCols transaction.WellsFields
	)

	dest := []any{&id, &r.Date, &amount, &r.Description, &hash, &r.CreatedAt}

	if bank == transaction.BankAmex {
		dest = append(dest,
			&amexCols.CardMember, &amexCols.AccountNumber, &amexCols.ExtendedDetails, &amexCols.AppearsOnStatementAs,
			&amexCols.Address, &amexCols.CityState, &amexCols.ZipCode, &amexCols.Country, &amexCols.Reference, &amexCols.Category,
		)
	} else {
		dest = append(dest, &wellsCols.Status, &wellsCols.UnknownField)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing id: %w", err)
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parsing amount: %w", err)
	}

	r.ID = parsedID
	r.Amount = amt

	if hash != nil {
		r.RawHash = *hash
	}

	if bank == transaction.BankAmex {
		r.Amex = &amexCols
	} else {
		r.Wells = &wellsCols
	}

	return &r, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// describe adds the Postgres error code to err when there is one.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w (code %s)", err, pgErr.Code)
	}

	return err
}
