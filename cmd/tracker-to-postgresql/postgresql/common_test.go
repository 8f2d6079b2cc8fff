package postgresql

import (
	"testing"

	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/helper"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func CreateMockConnection(t *testing.T) (*Connection, pgxmock.PgxPoolIface) {
	helper.InitTestLogging()

	mocked, err := pgxmock.NewPool()
	require.NoError(t, err, "Failed to create mock connection")

	return &Connection{Db: mocked}, mocked
}

func TestCreateMockConnection(t *testing.T) {
	c, mock := CreateMockConnection(t)
	defer mock.Close()
	assert.NotNil(t, c)
	assert.NotNil(t, c.Db)
}
