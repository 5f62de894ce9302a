package tokenstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
	"github.com/dmitrijs2005/incidentdesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/incidentdesk/internal/dbx"
)

// SQLiteStore keeps the slots in the metadata table of the local database.
// Multi-key writes run in one transaction.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Save(ctx context.Context, creds models.Credentials) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		if err := repo.Set(ctx, KeyAccessToken, []byte(creds.AccessToken)); err != nil {
			return err
		}
		if creds.RefreshToken == "" {
			return repo.Delete(ctx, KeyRefreshToken)
		}
		return repo.Set(ctx, KeyRefreshToken, []byte(creds.RefreshToken))
	})
}

// Load reads both token slots in one statement, so a concurrent Clear is
// observed either entirely or not at all.
func (s *SQLiteStore) Load(ctx context.Context) (*models.Credentials, error) {
	values, err := metadata.NewSQLiteRepository(s.db).GetMany(ctx, KeyAccessToken, KeyRefreshToken)
	if err != nil {
		return nil, err
	}

	access := values[KeyAccessToken]
	if len(access) == 0 {
		return nil, nil
	}
	return &models.Credentials{AccessToken: string(access), RefreshToken: string(values[KeyRefreshToken])}, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyUserProfile)
	})
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p models.UserProfile) error {
	data, err := codec.EncodeProfile(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return metadata.NewSQLiteRepository(s.db).Set(ctx, KeyUserProfile, data)
}

// LoadProfile treats an unreadable cached profile as absent; it is only a
// display cache and is replaced on the next profile fetch.
func (s *SQLiteStore) LoadProfile(ctx context.Context) (*models.UserProfile, error) {
	data, err := metadata.NewSQLiteRepository(s.db).Get(ctx, KeyUserProfile)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	p, err := codec.DecodeProfile(data)
	if err != nil {
		return nil, nil
	}
	return &p, nil
}

func (s *SQLiteStore) ClearProfile(ctx context.Context) error {
	return metadata.NewSQLiteRepository(s.db).Delete(ctx, KeyUserProfile)
}
