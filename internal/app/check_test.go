package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/waxal-backend/internal/clients/twilio"
	"github.com/yungbote/waxal-backend/internal/data/records"
	"github.com/yungbote/waxal-backend/internal/data/records/memstore"
	"github.com/yungbote/waxal-backend/internal/data/records/sheets"
	"github.com/yungbote/waxal-backend/internal/modules/collection"
	"github.com/yungbote/waxal-backend/internal/platform/vars"
)

type probe struct{ err error }

func (p probe) AssertReady(context.Context) error { return p.err }

func completeVars() *vars.Map {
	m := vars.NewMap(map[string]string{twilio.SenderVar: "14155550100"})
	for _, name := range collection.RequiredVars {
		m.Set(name, "x")
	}
	return m
}

func TestCheckDeploymentPasses(t *testing.T) {
	assert.NoError(t, checkDeployment(context.Background(), completeVars(), memstore.New(), probe{}))
}

func TestCheckDeploymentReportsEveryProblem(t *testing.T) {
	v := completeVars()
	v.Set(collection.VarSurveyCompleted, "")
	store := memstore.New()
	store.FailGet(records.TablePrompt, errors.New("permission denied"))

	err := checkDeployment(context.Background(), v, store, probe{err: errors.New("ffprobe not found")})
	require.Error(t, err)
	assert.ErrorIs(t, err, vars.ErrMissingConfig)
	assert.Contains(t, err.Error(), collection.VarSurveyCompleted)
	assert.Contains(t, err.Error(), "table Prompt: permission denied")
	assert.Contains(t, err.Error(), "ffprobe not found")
}

func TestSpreadsheetDocs(t *testing.T) {
	v := vars.NewMap(nil)
	for table, name := range sheets.SpreadsheetVars {
		v.Set(name, "doc-"+string(table))
	}
	docs, err := spreadsheetDocs(v)
	require.NoError(t, err)
	assert.Equal(t, "doc-Participant", docs[records.TableParticipant])
	assert.Len(t, docs, len(records.Tables))

	v.Set(sheets.SpreadsheetVars[records.TableResponse], " ")
	_, err = spreadsheetDocs(v)
	assert.ErrorIs(t, err, vars.ErrMissingConfig)
}

func TestOptionalVar(t *testing.T) {
	v := vars.NewMap(map[string]string{CredentialsVar: "/etc/waxal/sa.json"})
	assert.Equal(t, "/etc/waxal/sa.json", optionalVar(v, CredentialsVar))
	assert.Equal(t, "", optionalVar(v, "missing"))
}
