package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/gracepointe/growthtrack-backend/internal/clients/twilio"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
)

// slowGateway blocks every send until released.
type slowGateway struct {
	release chan struct{}
	done    chan struct{}
}

func (g *slowGateway) SendSMS(ctx context.Context, to, body string) (*twilio.Message, error) {
	<-g.release
	close(g.done)
	return &twilio.Message{SID: "SM-slow", To: to, Body: body, Status: "queued"}, nil
}

// Dispatch must hand off to a background sender; the committed write path may
// not stall behind a slow gateway.
func TestDispatchDoesNotBlockOnGateway(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	gateway := &slowGateway{release: make(chan struct{}), done: make(chan struct{})}
	n := NewNotifier(log, gateway)

	n.Dispatch(context.Background(), []Notification{
		welcomeNotification(uuid.New(), "+15550003333", "Slow"),
	})

	// Dispatch returned while the send is still pending
	select {
	case <-gateway.done:
		t.Fatal("send finished before it was released; dispatch ran inline")
	default:
	}

	close(gateway.release)
	n.Flush()

	select {
	case <-gateway.done:
	default:
		t.Fatal("flush returned before the send completed")
	}
}

func TestDispatchToleratesNilGateway(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	n := NewNotifier(log, nil)
	n.Dispatch(context.Background(), []Notification{
		welcomeNotification(uuid.New(), "+15550004444", "Nobody"),
	})
	n.Flush()
}
