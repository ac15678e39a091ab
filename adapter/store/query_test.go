package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/suite"

	"github.com/medkbase/medrag"
)

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

type StoreTestSuite struct {
	suite.Suite
	db      *sql.DB
	adapter *Adapter
}

func (s *StoreTestSuite) SetupTest() {
	db, err := sql.Open("sqlite3", ":memory:")
	s.Require().NoError(err)
	// In-memory sqlite is per connection, keep the pool at one.
	db.SetMaxOpenConns(1)
	s.db = db

	migrationsPath, err := filepath.Abs("../../db/migrations")
	s.Require().NoError(err)
	s.Require().NoError(medrag.Migrate(db, migrationsPath))

	s.adapter = New(db)
}

func (s *StoreTestSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func testContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 3*time.Second)
}

func testQueryRecord(question string, created time.Time) *medrag.QueryRecord {
	return &medrag.QueryRecord{
		ID:               medrag.NewQueryID(),
		Question:         question,
		Method:           medrag.MethodDense,
		Answer:           "answer text",
		Success:          true,
		ValidationPassed: true,
		Attempts:         1,
		Created:          created,
	}
}

func (s *StoreTestSuite) TestSaveAndListQueryRecords() {
	ctx, cancel := testContext()
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	records := []*medrag.QueryRecord{
		testQueryRecord("first question", now.Add(-2*time.Minute)),
		testQueryRecord("second question", now.Add(-time.Minute)),
		testQueryRecord("third question", now),
	}

	s.Require().NoError(s.adapter.SaveQueryRecords(ctx, records...))

	listed, err := s.adapter.ListQueryRecords(ctx, medrag.QueryRecordFilter{}, medrag.SortParams{
		By:    `"created"`,
		Order: medrag.SortOrderDesc,
	})
	s.Require().NoError(err)
	s.Require().Len(listed, 3)

	// Newest first.
	s.Equal(records[2].ID, listed[0].ID)
	s.Equal(records[0].ID, listed[2].ID)
	s.Equal("third question", listed[0].Question)
	s.Equal(medrag.MethodDense, listed[0].Method)
	s.True(listed[0].Success)
	s.True(listed[0].ValidationPassed)
	s.Equal(1, listed[0].Attempts)
	s.True(listed[0].Created.Equal(records[2].Created))
}

func (s *StoreTestSuite) TestListQueryRecordsFilter() {
	ctx, cancel := testContext()
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)

	blocked := testQueryRecord("do i have cancer", now)
	blocked.Method = medrag.MethodHybrid
	blocked.Success = true
	blocked.ValidationPassed = false
	blocked.Blocked = true
	blocked.Attempts = 0

	answered := testQueryRecord("what is diabetes", now)

	s.Require().NoError(s.adapter.SaveQueryRecords(ctx, blocked, answered))

	listed, err := s.adapter.ListQueryRecords(ctx, medrag.QueryRecordFilter{
		Method: medrag.MethodHybrid,
	}, medrag.SortParams{})
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(blocked.ID, listed[0].ID)

	isBlocked := true
	listed, err = s.adapter.ListQueryRecords(ctx, medrag.QueryRecordFilter{
		Blocked: &isBlocked,
	}, medrag.SortParams{})
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.True(listed[0].Blocked)

	notBlocked := false
	listed, err = s.adapter.ListQueryRecords(ctx, medrag.QueryRecordFilter{
		Blocked: &notBlocked,
	}, medrag.SortParams{})
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(answered.ID, listed[0].ID)
}

func (s *StoreTestSuite) TestListQueryRecordsLimit() {
	ctx, cancel := testContext()
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		record := testQueryRecord(fmt.Sprintf("question %d", i), now.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.adapter.SaveQueryRecords(ctx, record))
	}

	listed, err := s.adapter.ListQueryRecords(ctx, medrag.QueryRecordFilter{}, medrag.SortParams{
		By:    `"created"`,
		Order: medrag.SortOrderAsc,
		Limit: 2,
	})
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal("question 0", listed[0].Question)
	s.Equal("question 1", listed[1].Question)
}

func (s *StoreTestSuite) TestTransactionalRollback() {
	ctx, cancel := testContext()
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)

	err := s.adapter.Transactional(ctx, &sql.TxOptions{}, func(ctx context.Context) error {
		if err := s.adapter.SaveQueryRecords(ctx, testQueryRecord("doomed", now)); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	s.Require().Error(err)

	listed, err := s.adapter.ListQueryRecords(ctx, medrag.QueryRecordFilter{}, medrag.SortParams{})
	s.Require().NoError(err)
	s.Empty(listed)
}
