package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chmielvu/Forge-Text/internal/bootstrap"
	"github.com/chmielvu/Forge-Text/internal/storage"
	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/config"
	"github.com/chmielvu/Forge-Text/pkg/engine"
	"github.com/chmielvu/Forge-Text/pkg/layout"
	"github.com/chmielvu/Forge-Text/pkg/mutation"
	"github.com/chmielvu/Forge-Text/pkg/query"
	"github.com/chmielvu/Forge-Text/pkg/store"

	"github.com/spf13/cobra"
)

// session is one loaded graph plus the configuration it was built from.
type session struct {
	cfg   config.Config
	ctrl  *engine.Controller
	graph string
}

func (s *session) Close() error { return s.ctrl.Close() }

func readSnapshotFile(path string) (common.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return common.Snapshot{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return storage.Decode(data)
}

func writeSnapshotFile(path string, snap common.Snapshot) error {
	data, err := storage.Encode(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// openSession loads --graph (or the cast) into a controller that keeps
// its index in memory and lays out inline.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	graphPath, err := cmd.Flags().GetString("graph")
	if err != nil {
		return nil, fmt.Errorf("failed to read --graph flag: %w", err)
	}

	var snap common.Snapshot
	if graphPath != "" {
		if snap, err = readSnapshotFile(graphPath); err != nil {
			return nil, err
		}
	}

	summarizer, err := bootstrap.Summarizer(cfg.AI)
	if err != nil {
		return nil, err
	}

	e := cfg.Engine
	ctrl := engine.NewController(engine.NewControllerParams{
		Snapshot:           snap,
		Cache:              store.NewMemoryCache(),
		Summarizer:         summarizer,
		LayoutExecutor:     layout.Inline{},
		Resolver:           e.Resolver(),
		Query:              e.QueryParams(),
		Decay:              e.DecayConfig(),
		Layout:             e.LayoutSettings(),
		Subject:            e.Subject,
		PruneThreshold:     e.PruneThreshold,
		BetweennessCeiling: e.BetweennessCeiling,
	})
	return &session{cfg: cfg, ctrl: ctrl, graph: graphPath}, nil
}

func jsonFlag(cmd *cobra.Command) (bool, error) {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return false, fmt.Errorf("failed to read --json flag: %w", err)
	}
	return asJSON, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func RunResolve(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	id, ok := s.ctrl.ResolveEntityID(args[0])
	if !ok {
		return fmt.Errorf("no entity matches %q", args[0])
	}
	asJSON, err := jsonFlag(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), map[string]string{"text": args[0], "id": id})
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func RunQuery(cmd *cobra.Command, args []string) error {
	mode, err := cmd.Flags().GetString("mode")
	if err != nil {
		return fmt.Errorf("failed to read --mode flag: %w", err)
	}
	if mode != string(query.ModeLocal) && mode != string(query.ModeGlobal) {
		return fmt.Errorf("invalid --mode %q (supported: local, global)", mode)
	}
	hops, err := cmd.Flags().GetInt("hops")
	if err != nil {
		return fmt.Errorf("failed to read --hops flag: %w", err)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	res := s.ctrl.Retrieve(context.Background(), args[0], query.RetrieveOptions{Mode: query.Mode(mode), Hops: hops})
	asJSON, err := jsonFlag(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.ctrl.Indexer().AugmentPrompt(res))
	return nil
}

func RunPath(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	path, ok := s.ctrl.DominancePath(args[0], args[1])
	if !ok {
		return fmt.Errorf("no path from %q to %q", args[0], args[1])
	}
	asJSON, err := jsonFlag(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), map[string][]string{"path": path})
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(path, " -> "))
	return nil
}

func RunCommunities(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	communities := s.ctrl.Communities()
	asJSON, err := jsonFlag(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), communities)
	}

	ids := make([]string, 0, len(communities))
	for id := range communities {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := communities[a] - communities[b]; c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	for _, id := range ids {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", communities[id], id)
	}
	return nil
}

// RunApply applies a batch file as one turn's mutations without advancing
// the turn.
func RunApply(cmd *cobra.Command, args []string) error {
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to read --out flag: %w", err)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if out == "" {
		out = s.graph
	}
	if out == "" {
		return fmt.Errorf("nowhere to write the result: pass --graph or --out")
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	report, err := s.ctrl.ApplyBatch(context.Background(), string(raw))
	if err != nil {
		return err
	}
	if err := writeSnapshotFile(out, s.ctrl.Snapshot()); err != nil {
		return err
	}

	asJSON, err := jsonFlag(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(cmd.OutOrStdout(), report)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d, skipped %d -> %s\n", report.Applied, len(report.Skipped), out)
	for _, skip := range report.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped #%d %s: %s\n", skip.Index, skip.Operation, skip.Reason)
	}
	return nil
}

func RunExport(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	snap := s.ctrl.Snapshot()
	if err := writeSnapshotFile(args[0], snap); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d nodes, %d edges -> %s\n", len(snap.Nodes), len(snap.Edges), args[0])
	return nil
}

// RunImport loads a snapshot file through the engine, which drops edges
// with missing endpoints, and saves the result to the configured store.
func RunImport(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return fmt.Errorf("failed to read --name flag: %w", err)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}
	if err := storage.ValidateName(name); err != nil {
		return err
	}

	snap, err := readSnapshotFile(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.ctrl.Restore(snap)
	cleaned := s.ctrl.Snapshot()
	if dropped := len(snap.Edges) - len(cleaned.Edges); dropped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: dropped %d edges with missing endpoints\n", dropped)
	}

	snapshots, err := bootstrap.SnapshotStore(ctx, s.cfg.Store)
	if err != nil {
		return err
	}
	if err := snapshots.Save(ctx, name, cleaned); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes, %d edges as %s\n", len(cleaned.Nodes), len(cleaned.Edges), name)
	return nil
}

func RunSchema(cmd *cobra.Command, args []string) error {
	return printJSON(cmd.OutOrStdout(), mutation.BatchSchema())
}
