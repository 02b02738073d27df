package notifier

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

func TestDummyNotifierLogs(t *testing.T) {
	log, hook := test.NewNullLogger()
	n := NewDummyNotifier(log)

	err := n.Notify(context.Background(), models.Notification{Kind: "cancelled", Topic: models.AudienceAllHODs, Title: "Meeting cancelled", Body: "x"})
	require.NoError(t, err)
	require.Len(t, hook.Entries, 1)
	require.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	require.Contains(t, hook.LastEntry().Message, "topic All HODs")
	require.Equal(t, "cancelled", hook.LastEntry().Data["kind"])
}
