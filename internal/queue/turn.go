package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chmielvu/Forge-Text/internal/storage"
	"github.com/chmielvu/Forge-Text/pkg/engine"
	"github.com/chmielvu/Forge-Text/pkg/logger"
	"github.com/chmielvu/Forge-Text/pkg/mutation"
	"github.com/chmielvu/Forge-Text/pkg/query"
)

// TurnMessage is one turn published by the narrative generator.
//
// Turn, when set, is the turn number the generator is on; the counter is
// moved forward to match before the turn is processed. Mutations accepts
// anything mutation.Decode accepts. SaveAs names a snapshot to write after
// the turn.
type TurnMessage struct {
	Turn      int             `json:"turn,omitempty"`
	Query     string          `json:"query,omitempty"`
	Mode      query.Mode      `json:"mode,omitempty"`
	Hops      int             `json:"hops,omitempty"`
	Mutations json.RawMessage `json:"mutations,omitempty"`
	SaveAs    string          `json:"save_as,omitempty"`
}

// TurnReply is sent back to the message's ReplyTo queue.
type TurnReply struct {
	engine.TurnResult
	Snapshot string `json:"snapshot,omitempty"`
}

// TurnHandler runs turn messages against c. snapshots may be nil, in
// which case SaveAs is ignored.
func TurnHandler(c *engine.Controller, snapshots storage.SnapshotStore) Handler {
	return func(ctx context.Context, body []byte) ([]byte, error) {
		var msg TurnMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, fmt.Errorf("decode turn message: %w", err)
		}

		var muts []mutation.Mutation
		if len(msg.Mutations) > 0 && string(msg.Mutations) != "null" {
			var err error
			if muts, err = mutation.Decode(string(msg.Mutations)); err != nil {
				return nil, err
			}
		}

		if msg.Turn > 0 {
			c.Graph().SetTurn(msg.Turn - 1)
		}

		res := c.ProcessTurn(ctx, engine.TurnInput{
			Query:     msg.Query,
			Mutations: muts,
			Retrieve:  query.RetrieveOptions{Mode: msg.Mode, Hops: msg.Hops},
		})

		reply := TurnReply{TurnResult: res}
		if msg.SaveAs != "" && snapshots != nil {
			if err := snapshots.Save(ctx, msg.SaveAs, c.Snapshot()); err != nil {
				// the turn is applied already, so a retry would apply it twice
				logger.Error("[Queue] Failed to save snapshot", "name", msg.SaveAs, "err", err)
			} else {
				reply.Snapshot = msg.SaveAs
			}
		}
		return json.Marshal(reply)
	}
}
