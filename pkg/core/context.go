/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: context.go
Description: Analysis context for the Akaylee Profiler. Carries the identity of the stream
being profiled (its name and the record it belongs to) so header hints can be applied.
*/

package core

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisContext describes where a stream comes from
type AnalysisContext struct {
	SessionID            string    `json:"sessionID"`                      // Unique identifier of this analysis
	StreamName           string    `json:"streamName"`                     // Field or column name
	StreamIndex          int       `json:"streamIndex"`                    // Position within the record, -1 if unknown
	CompositeName        string    `json:"compositeName,omitempty"`        // Name of the enclosing record/file
	CompositeStreamNames []string  `json:"compositeStreamNames,omitempty"` // Sibling stream names
	CreatedAt            time.Time `json:"createdAt"`
}

// NewAnalysisContext creates a context for a named stream
func NewAnalysisContext(streamName string) *AnalysisContext {
	return &AnalysisContext{
		SessionID:   uuid.NewString(),
		StreamName:  streamName,
		StreamIndex: -1,
		CreatedAt:   time.Now().UTC(),
	}
}

// Clone returns a deep copy with a fresh session identifier
func (c *AnalysisContext) Clone() *AnalysisContext {
	clone := *c
	clone.SessionID = uuid.NewString()
	clone.CompositeStreamNames = append([]string(nil), c.CompositeStreamNames...)
	return &clone
}
