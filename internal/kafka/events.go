package kafka

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/aviorian/monad-mindshare/internal/domain"
	"github.com/aviorian/monad-mindshare/internal/transfer"
)

// Event types carried in the "type" field of every payload.
const (
	EventLeaderboardSnapshot = "leaderboard.snapshot"
	EventTransferTransition  = "transfer.transition"
)

// LeaderboardEvent describes a committed snapshot.
func LeaderboardEvent(snap domain.LeaderboardSnapshot, at time.Time) (*structpb.Struct, error) {
	authors := make([]any, 0, len(snap.Authors))
	for i, a := range snap.Authors {
		authors = append(authors, map[string]any{
			"rank":        i + 1,
			"fid":         a.AuthorID,
			"username":    a.Username,
			"displayName": a.DisplayName,
			"casts":       a.TotalCasts,
			"engagement":  a.TotalEngagement,
			"points":      a.TotalPoints,
			"mindshare":   a.Mindshare,
		})
	}
	failed := make([]any, 0, len(snap.FailedTerms))
	for _, term := range snap.FailedTerms {
		failed = append(failed, term)
	}

	fields := map[string]any{
		"type":        EventLeaderboardSnapshot,
		"generation":  snap.Generation,
		"totalPoints": snap.TotalPoints,
		"authors":     authors,
		"failedTerms": failed,
		"warning":     snap.Warning,
		"occurredAt":  timestampFields(at),
	}
	if !snap.UpdatedAt.IsZero() {
		fields["updatedAt"] = timestampFields(snap.UpdatedAt)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build leaderboard event: %w", err)
	}
	return s, nil
}

// TransferEvent describes one tracker transition.
func TransferEvent(state transfer.State) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]any{
		"type":       EventTransferTransition,
		"attemptId":  state.AttemptID,
		"phase":      string(state.Phase),
		"stage":      state.Stage,
		"reason":     state.Reason,
		"txHash":     state.TxHash,
		"recipients": state.Recipients,
		"amount":     state.Amount,
		"totalValue": state.TotalValue,
		"occurredAt": timestampFields(state.UpdatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("build transfer event: %w", err)
	}
	return s, nil
}

// DecodeEvent unmarshals a payload written by one of the publishers.
func DecodeEvent(data []byte) (*structpb.Struct, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal event proto: %w", err)
	}
	return &s, nil
}

// EventTime reads the occurredAt field back; zero when absent.
func EventTime(s *structpb.Struct) time.Time {
	ts := s.GetFields()["occurredAt"].GetStructValue()
	if ts == nil {
		return time.Time{}
	}
	pb := &timestamppb.Timestamp{
		Seconds: int64(ts.GetFields()["seconds"].GetNumberValue()),
		Nanos:   int32(ts.GetFields()["nanos"].GetNumberValue()),
	}
	if err := pb.CheckValid(); err != nil {
		return time.Time{}
	}
	return pb.AsTime()
}

func timestampFields(t time.Time) map[string]any {
	ts := timestamppb.New(t)
	return map[string]any{
		"seconds": ts.GetSeconds(),
		"nanos":   ts.GetNanos(),
	}
}
