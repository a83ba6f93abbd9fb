package httpserver

import (
	"time"

	"github.com/vaibhav0806/prophit-sub001/pkg/types"
	"github.com/vaibhav0806/prophit-sub001/pkg/websocket"
)

// StreamFrame is the payload pushed to /ws/opportunities clients after
// every scan. An empty Opportunities slice is still sent so dashboards
// can clear stale rows.
type StreamFrame struct {
	Type          string            `json:"type"`
	At            int64             `json:"at"`
	Opportunities []OpportunityView `json:"opportunities"`
}

// StreamPublisher adapts the broadcast hub to the agent's publisher
// hook, converting scan results to their wire form.
type StreamPublisher struct {
	hub *websocket.Hub
}

// NewStreamPublisher wraps a hub for use as an agent stream.
func NewStreamPublisher(hub *websocket.Hub) *StreamPublisher {
	return &StreamPublisher{hub: hub}
}

// PublishOpportunities broadcasts one scan result to all stream clients.
func (p *StreamPublisher) PublishOpportunities(opps []types.ArbitOpportunity) {
	p.hub.Broadcast(StreamFrame{
		Type:          "opportunities",
		At:            time.Now().UnixMilli(),
		Opportunities: opportunityViews(opps),
	})
}
