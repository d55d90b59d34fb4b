package audit

import (
	"context"
	"testing"

	common_models "go-crm-automation/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuditRepo struct {
	logs          []common_models.AuditLog
	limit, offset int64
}

func (f *fakeAuditRepo) Create(_ context.Context, log common_models.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, _ map[string]interface{}, limit, offset int64) ([]common_models.AuditLog, error) {
	f.limit, f.offset = limit, offset
	return f.logs, nil
}

func TestLogChange_Actor(t *testing.T) {
	tests := []struct {
		name        string
		ctx         context.Context
		wantActor   string
		wantCompany string
	}{
		{
			name:      "Scheduled runs are system",
			ctx:       context.Background(),
			wantActor: "system",
		},
		{
			name: "Request identity",
			ctx: context.WithValue(
				context.WithValue(context.Background(), common_models.UserIDKey, "user-1"),
				common_models.CompanyIDKey, "company-1",
			),
			wantActor:   "user-1",
			wantCompany: "company-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeAuditRepo{}
			service := NewAuditService(repo)

			err := service.LogChange(tt.ctx, common_models.AuditActionExecution, "automation", "flow-1", map[string]common_models.Change{
				"success": {New: true},
			})

			require.NoError(t, err)
			require.Len(t, repo.logs, 1)
			log := repo.logs[0]
			assert.Equal(t, tt.wantActor, log.ActorID)
			assert.Equal(t, tt.wantCompany, log.CompanyID)
			assert.Equal(t, "automation", log.Module)
			assert.Equal(t, "flow-1", log.RecordID)
			assert.False(t, log.ID.IsZero())
		})
	}
}

func TestListLogs_Paging(t *testing.T) {
	repo := &fakeAuditRepo{}
	service := NewAuditService(repo)

	_, err := service.ListLogs(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), repo.limit)
	assert.Equal(t, int64(0), repo.offset)

	_, err = service.ListLogs(context.Background(), nil, 3, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(40), repo.offset)
}
