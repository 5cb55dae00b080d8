package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"omnichat/internal/chat"
	"omnichat/internal/config"
	"omnichat/internal/logging"
	"omnichat/internal/persona"
	"omnichat/internal/store"
)

var (
	// Global flags
	verbose bool
	dataDir string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "omnichat",
	Short: "OmniAI Pro - persona-based AI chat in your terminal",
	Long: `omnichat is a terminal chat application with specialized assistant
personas (general, medical info, psychologist, tutor, lawyer, business
coach, translator, programmer) backed by the Gemini API.

Conversation history and your profile persist locally. Free accounts
include 20 messages; upgrading removes the limit.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveChat()
	},
}

// personasCmd lists the available assistants
var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the available assistant personas",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range persona.Registry {
			fmt.Printf("%s  %-16s %-22s %s\n", p.Icon, p.ID, personaStyle(p).Render(p.Name), subtleStyle.Render(p.Description))
		}
	},
}

// exploreCmd lists the one-shot productivity presets
var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "List productivity tool presets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, tool := range persona.ExploreTools {
			fmt.Printf("%s  %-14s %s\n", tool.Icon, tool.Name, subtleStyle.Render(tool.Desc))
		}
	},
}

// chatsCmd lists saved conversations
var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List saved conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		chats := st.Chats()
		if len(chats) == 0 {
			fmt.Println(subtleStyle.Render("No recent conversations."))
			return nil
		}
		for i, c := range chats {
			p := persona.FindOrDefault(persona.ID(c.PersonaID))
			fmt.Printf("%2d. %s %s %s\n", i+1, p.Icon, titleStyle.Render(c.Title),
				subtleStyle.Render(fmt.Sprintf("(%s, %d messages)", p.Name, len(c.Messages))))
		}
		return nil
	},
}

// profileCmd shows the local user profile and quota
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the local profile and usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		p := st.Profile()
		tier := "Standard Tier"
		usage := fmt.Sprintf("%d/%d messages used", p.MessageCount, chat.FreeMessageLimit)
		if p.IsPro {
			tier = "Platinum Member"
			usage = fmt.Sprintf("%d messages sent (unlimited)", p.MessageCount)
		}
		fmt.Printf("%s\n%s\n%s\n", titleStyle.Render(p.Name), subtleStyle.Render(tier), usage)
		return nil
	},
}

// upgradeCmd flips the local pro flag. There is no billing integration;
// the upgrade is a local plan change.
var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade the local profile to pro (removes the message limit)",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		st.UpdateProfile(func(p *chat.UserProfile) {
			p.IsPro = true
		})
		fmt.Println(titleStyle.Render("⚡ Welcome to OmniAI Platinum.") + " Unlimited messaging unlocked.")
		return nil
	},
}

// openStore loads config, initializes logging, and opens the session store.
func openStore() (*config.Config, *store.SessionStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := logging.Initialize(cfg.DataDir, logging.Options{
		Debug:      cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.JSONFormat,
	}); err != nil {
		return nil, nil, err
	}

	kv, err := store.OpenSQLiteKV(cfg.StorePath())
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(kv)
	if err != nil {
		kv.Close()
		return nil, nil, err
	}
	return cfg, st, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the data directory (default ~/.omnichat)")

	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(chatsCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(upgradeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
