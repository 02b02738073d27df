package notifier

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pershin-daniil/facultymeet/pkg/models"
)

// DummyNotifier only logs notifications. It is used when no bot token is configured.
type DummyNotifier struct {
	log *logrus.Entry
}

func NewDummyNotifier(log *logrus.Logger) *DummyNotifier {
	return &DummyNotifier{
		log: log.WithField("component", "notifier"),
	}
}

func (n *DummyNotifier) Notify(_ context.Context, msg models.Notification) error {
	target := msg.UID
	if target == "" {
		target = "topic " + msg.Topic
	}
	n.log.WithField("kind", msg.Kind).Infof("notifying %s: %s: %s", target, msg.Title, msg.Body)
	return nil
}
