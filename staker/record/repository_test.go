// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package record

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakedash/stakedash/lvldb"
	"github.com/stakedash/stakedash/types"
)

func newRepository(t *testing.T) (*Repository, *lvldb.LevelDB) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db, 0)
	require.NoError(t, err)
	return repo, db
}

func TestRepository_GetPut(t *testing.T) {
	repo, _ := newRepository(t)

	rec, err := repo.Get(operator)
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, repo.Put(newRecord(100)))

	rec, err = repo.Get(operator)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, owner, rec.Owner())
	assert.Equal(t, types.Tokens(100), rec.Amount())

	// mutating a returned record does not touch the stored one
	rec.Undelegate(200)
	again, err := repo.Get(operator)
	require.NoError(t, err)
	assert.Nil(t, again.UndelegatedAt())

	require.NoError(t, repo.Put(rec))
	again, err = repo.Get(operator)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), *again.UndelegatedAt())
}

func TestRepository_PersistsAcrossInstances(t *testing.T) {
	repo, db := newRepository(t)

	rec := newRecord(100)
	rec.Undelegate(150)
	require.NoError(t, repo.Put(rec))

	fresh, err := NewRepository(db, 1)
	require.NoError(t, err)

	got, err := fresh.Get(operator)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.body, got.body)
}

func TestRepository_PutEmpty(t *testing.T) {
	repo, _ := newRepository(t)
	assert.Error(t, repo.Put(nil))
	assert.Error(t, repo.Archive(nil))
}

func TestRepository_ArchiveAndHistory(t *testing.T) {
	repo, _ := newRepository(t)

	first := newRecord(100)
	first.Cancel()
	require.NoError(t, repo.Put(first))
	require.NoError(t, repo.Archive(first))

	rec, err := repo.Get(operator)
	require.NoError(t, err)
	assert.Nil(t, rec)

	second := newRecord(200)
	second.Undelegate(300)
	second.Recover(400)
	require.NoError(t, repo.Put(second))
	require.NoError(t, repo.Archive(second))

	history, err := repo.History(operator)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Cancelled())
	assert.Equal(t, uint64(100), history[0].CreatedAt())
	assert.Equal(t, uint64(400), *history[1].RecoveredAt())

	other, err := repo.History(owner)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRepository_Operators(t *testing.T) {
	repo, _ := newRepository(t)

	a := types.BytesToAddress([]byte{1})
	b := types.BytesToAddress([]byte{2})
	for _, op := range []types.Address{b, a} {
		require.NoError(t, repo.Put(New(op, owner, beneficiary, authorizer, types.Tokens(1), 0)))
	}
	// archived records do not show up
	archived := New(operator, owner, beneficiary, authorizer, types.Tokens(1), 0)
	require.NoError(t, repo.Put(archived))
	require.NoError(t, repo.Archive(archived))

	ops, err := repo.Operators()
	require.NoError(t, err)
	assert.Equal(t, []types.Address{a, b}, ops)
}

func TestRepository_Walk(t *testing.T) {
	repo, _ := newRepository(t)

	archived := newRecord(100)
	archived.Cancel()
	require.NoError(t, repo.Put(archived))
	require.NoError(t, repo.Archive(archived))
	require.NoError(t, repo.Put(newRecord(200)))

	type visit struct {
		createdAt uint64
		live      bool
	}
	var visits []visit
	require.NoError(t, repo.Walk(func(rec *Record, live bool) error {
		visits = append(visits, visit{rec.CreatedAt(), live})
		return nil
	}))
	assert.Equal(t, []visit{{100, false}, {200, true}}, visits)

	stop := errors.New("stop")
	n := 0
	err := repo.Walk(func(*Record, bool) error {
		n++
		return stop
	})
	assert.Equal(t, stop, err)
	assert.Equal(t, 1, n)
}
