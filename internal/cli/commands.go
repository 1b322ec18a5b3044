package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HerbHall/palette/internal/remote"
	"github.com/HerbHall/palette/internal/theme"
	"github.com/HerbHall/palette/internal/themestore"
	"github.com/HerbHall/palette/pkg/preset"
)

func newShowCmd(state *rootState) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current selection and resolved colors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, state, func(_ context.Context, a *app) error {
				if asJSON {
					colors, _ := a.store.Colors()
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(struct {
						Preference theme.Preference `json:"preference"`
						Colors     theme.Colors     `json:"colors"`
					}{a.store.Preference(), colors})
				}
				if err := renderStatus(cmd.OutOrStdout(), a.store); err != nil {
					return err
				}
				colors, _ := a.store.Colors()
				renderColors(cmd.OutOrStdout(), colors)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print preference and colors as JSON")
	return cmd
}

func newModeCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:       "mode <light|dark>",
		Short:     "Set the color mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(theme.Light), string(theme.Dark)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := theme.ParseColorMode(args[0])
			if !ok {
				return fmt.Errorf("unknown color mode %q: want light or dark", args[0])
			}
			return mutate(cmd, state, func(s *themestore.Store) error {
				return s.SetColorMode(mode)
			})
		},
	}
}

func newPresetCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "preset <id>",
		Short: "Apply a preset palette (\"default\" returns to the built-in palette)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, state, func(s *themestore.Store) error {
				return s.SelectPreset(args[0])
			})
		},
	}
}

func newCustomCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "custom <primary> <secondary> <accent>",
		Short: "Apply custom brand colors (premium)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, state, func(s *themestore.Store) error {
				return s.ApplyCustomColors(theme.UserColors{
					Primary:   args[0],
					Secondary: args[1],
					Accent:    args[2],
				})
			})
		},
	}
}

func newUseCustomCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "use-custom",
		Short: "Switch back to previously applied custom colors (premium)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return mutate(cmd, state, func(s *themestore.Store) error {
				return s.UseCustomColors()
			})
		},
	}
}

func newResetCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return to the default palette and forget custom colors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return mutate(cmd, state, func(s *themestore.Store) error {
				return s.ResetToDefault()
			})
		},
	}
}

func newPresetsCmd() *cobra.Command {
	var freeOnly bool
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List available preset palettes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f preset.Filter
			if freeOnly {
				f = preset.FreeOnly()
			}
			renderPresets(cmd.OutOrStdout(), preset.Builtin().List(f))
			return nil
		},
	}
	cmd.Flags().BoolVar(&freeOnly, "free", false, "only list free presets")
	return cmd
}

func newPullCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace the local selection with the profile service's copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, state, func(ctx context.Context, a *app) error {
				if err := requireToken(a); err != nil {
					return err
				}
				found, err := a.store.LoadFromRemote(ctx, a.token)
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintln(cmd.OutOrStdout(), "no saved preference on the profile service; keeping local selection")
				}
				return renderStatus(cmd.OutOrStdout(), a.store)
			})
		},
	}
}

func newPushCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Save the local selection to the profile service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, state, func(ctx context.Context, a *app) error {
				if err := requireToken(a); err != nil {
					return err
				}
				if err := a.store.SaveToRemote(ctx, a.token); err != nil {
					var se *remote.StatusError
					if errors.As(err, &se) && se.StatusCode == 403 {
						fmt.Fprintln(cmd.ErrOrStderr(), upgradeHint)
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "saved")
				return nil
			})
		},
	}
}

func newWatchCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow preference changes made on other devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withApp(cmd, state, func(ctx context.Context, a *app) error {
				if err := requireToken(a); err != nil {
					return err
				}
				unsubscribe := followChanges(a.bus, cmd.OutOrStdout(), a.store.IsPremium)
				defer unsubscribe()

				found, err := a.store.LoadFromRemote(ctx, a.token)
				if err != nil {
					return err
				}
				if !found {
					if err := renderStatus(cmd.OutOrStdout(), a.store); err != nil {
						return err
					}
				}
				return a.client.Watch(ctx, a.token, func(n remote.Notification) {
					if n.Type != remote.NotificationPreferencesUpdated {
						return
					}
					if _, err := a.store.LoadFromRemote(ctx, a.token); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
					}
				})
			})
		},
	}
}
