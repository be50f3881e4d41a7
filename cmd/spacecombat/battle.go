package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/OCAP2/spacecombat/internal/api"
	"github.com/OCAP2/spacecombat/internal/captain"
	"github.com/OCAP2/spacecombat/internal/combat"
	"github.com/OCAP2/spacecombat/internal/config"
	"github.com/OCAP2/spacecombat/internal/results"
	"github.com/OCAP2/spacecombat/internal/scenario"
	"github.com/OCAP2/spacecombat/internal/storage"
	"github.com/OCAP2/spacecombat/pkg/core"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var errUsage = errors.New("a scenario file is required (--scenario)")

type runFlags struct {
	scenario  string
	configDir string
	seed      int64
	tag       string
	upload    bool
}

func runCommand(args []string, stdout, stderr io.Writer) error {
	var f runFlags
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&f.scenario, "scenario", "s", "", "scenario YAML file")
	fs.StringVarP(&f.configDir, "config", "c", ".", "directory holding "+config.FileName)
	fs.Int64Var(&f.seed, "seed", 0, "RNG seed, overrides the scenario and config")
	fs.String("storage", "", "storage backend: memory, sqlite, postgres or websocket")
	fs.StringVar(&f.tag, "tag", "", "tag stored with the battle (default from config)")
	fs.BoolVar(&f.upload, "upload", false, "upload the exported report when the battle ends")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f.scenario == "" {
		return errUsage
	}

	configErr := config.Load(f.configDir)
	if err := viper.BindPFlag("storage.type", fs.Lookup("storage")); err != nil {
		return err
	}

	scn, err := scenario.Load(f.scenario)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.close()
	if configErr != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", configErr)
	}

	battle, err := a.resolve(ctx, scn, f, fs.Changed("seed"))
	if err != nil {
		return err
	}

	printSummary(stdout, battle)

	if f.upload || viper.GetBool("api.upload") {
		return a.upload(ctx)
	}
	return nil
}

// resolve runs the scenario to completion and returns the recorded battle.
func (a *app) resolve(ctx context.Context, scn *scenario.File, f runFlags, seedSet bool) (core.Battle, error) {
	combatCfg := config.GetCombatConfig()
	cfg := scn.Config(combat.Config{
		MaxRounds:       combatCfg.MaxRounds,
		ErosionChance:   combatCfg.ErosionChance,
		ObstacleDensity: combatCfg.ObstacleDensity,
		Seed:            combatCfg.Seed,
	})
	if seedSet {
		cfg.Seed = f.seed
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	capt := captain.NewBasic(combatCfg.RetreatBelow, combatCfg.FallbackSystem, a.logger)
	battle, err := scn.Build(capt)
	if err != nil {
		return core.Battle{}, fmt.Errorf("building scenario: %w", err)
	}

	tag := f.tag
	if tag == "" {
		tag = viper.GetString("defaultTag")
	}
	rec := results.New(battle.Attacker, battle.Defender, a.dispatcher,
		results.WithLogger(a.logger),
		results.WithTag(tag),
		results.WithVersion(BuildVersion),
	)

	m, err := combat.NewManager(cfg,
		combat.WithLogger(a.logger),
		combat.WithResults(rec),
		combat.WithObserver(rec),
	)
	if err != nil {
		return core.Battle{}, err
	}

	a.logger.Info("Resolving battle", "battle", battle.Name, "seed", cfg.Seed, "storage", viper.GetString("storage.type"))
	m.SetupBattle(battle)

	runner := combat.NewAutoRunner(m, combatCfg.StepDelay)
	runner.Start(ctx)
	<-runner.Done()
	if err := runner.Err(); err != nil {
		a.logger.Warn("Battle interrupted", "battle", battle.Name, "round", m.Round(), "error", err)
		return rec.Battle(), fmt.Errorf("battle interrupted in round %d: %w", m.Round(), err)
	}

	for _, err := range rec.Errors() {
		a.logger.Warn("Battle record not stored", "error", err)
	}
	return rec.Battle(), nil
}

func (a *app) upload(ctx context.Context) error {
	u, ok := a.backend.(storage.Uploadable)
	if !ok {
		a.logger.Warn("Storage backend does not produce an uploadable report", "storage", viper.GetString("storage.type"))
		return nil
	}
	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.Healthcheck(ctx); err != nil {
		return fmt.Errorf("report server unavailable: %w", err)
	}
	if err := client.UploadExport(ctx, u); err != nil {
		return err
	}
	a.logger.Info("Uploaded battle report", "file", u.GetExportedFilePath())
	return nil
}

func validateCommand(args []string, stdout, stderr io.Writer) error {
	var path string
	fs := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&path, "scenario", "s", "", "scenario YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if path == "" && fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if path == "" {
		return errUsage
	}

	scn, err := scenario.Load(path)
	if err != nil {
		return err
	}
	battle, err := scn.Build(captain.NewBasic(0, "", nil))
	if err != nil {
		return err
	}

	stacks := len(battle.Monsters)
	for _, fl := range battle.Fleets {
		stacks += len(fl.Stacks)
	}
	if battle.Colony != nil {
		stacks++
	}
	fmt.Fprintf(stdout, "%s: ok (%s, %s vs %s, %d stacks)\n",
		path, battle.System.Name, battle.Attacker, battle.Defender, stacks)
	return nil
}

func printSummary(w io.Writer, b core.Battle) {
	outcome := "no victor"
	switch {
	case b.Stalemate:
		outcome = "stalemate"
	case b.Victor != "":
		outcome = b.Victor + " wins"
	}
	fmt.Fprintf(w, "%s (%s): %s after %d rounds\n", b.Name, b.SystemName, outcome, b.Rounds)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SIDE\tSTACKS LOST\tSHIPS LOST\tRETREATED\tDAMAGE")
	for _, s := range b.Summary {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f\n",
			s.Owner, s.StacksDestroyed, s.ShipsDestroyed, s.ShipsRetreated, s.DamageSustained)
	}
	tw.Flush()
}
