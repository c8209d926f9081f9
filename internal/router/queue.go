package router

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownQueue is returned for a queue selector outside the known set.
var ErrUnknownQueue = errors.New("unknown queue")

// Queue selects which team queue a routing pass drains.
type Queue int

const (
	// QueueService is the service/consulting group queue. Its tickets are
	// routed to dataset owners.
	QueueService Queue = iota + 1
	// QueueCuration is the curation group queue. Its tickets are checked but
	// left for the curation team to assign by hand.
	QueueCuration
)

// Queues lists every queue in the order a full run drains them.
var Queues = []Queue{QueueService, QueueCuration}

func (q Queue) String() string {
	switch q {
	case QueueService:
		return "service"
	case QueueCuration:
		return "curation"
	default:
		return fmt.Sprintf("Queue(%d)", int(q))
	}
}

// ParseQueue maps a queue name to its selector.
func ParseQueue(s string) (Queue, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "service":
		return QueueService, nil
	case "curation":
		return QueueCuration, nil
	default:
		return 0, fmt.Errorf("%w %q (want service or curation)", ErrUnknownQueue, s)
	}
}
