package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
	"github.com/Lbridge2222/Teamforge-sub001/internal/app"
	"github.com/Lbridge2222/Teamforge-sub001/internal/config"
	"github.com/Lbridge2222/Teamforge-sub001/internal/db"
	"github.com/Lbridge2222/Teamforge-sub001/internal/domain"
	"github.com/Lbridge2222/Teamforge-sub001/internal/engine"
	"github.com/Lbridge2222/Teamforge-sub001/internal/migrate"
	"github.com/Lbridge2222/Teamforge-sub001/internal/repo"
	"github.com/Lbridge2222/Teamforge-sub001/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "tf",
	Short: "Teamforge CLI",
	Long: `Teamforge models how a team is organised and diagnoses the structure.
Core concepts:
- Workspace: one team design under diagnosis; all roles, stages, and activities live in it.
- Roles: who does what, with explicit ownership claims and optional Belbin typing.
- Stages: the delivery pipeline; roles staff stages, handoffs connect them.
- Handoffs: stage-to-stage transitions with SLAs and known tensions.
- Activities: concrete work, grouped into categories with ideal Belbin profiles.
- Diagnostics: 'tf diagnose' detects ownership overlaps, structural gaps,
  boundary references, Belbin mismatches, and scores overall health.
- Event log: diary of changes, view with 'tf log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir := viper.GetString("dir")
		if _, err := db.EnsureWorkspace(dir); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TEAMFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("dir", "d", ".", "data directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("workspace", "", "workspace id (overrides the single-workspace default)")
	_ = viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
}

func registerCommands() {
	rootCmd.AddCommand(workspaceCmd())
	rootCmd.AddCommand(roleCmd())
	rootCmd.AddCommand(stageCmd())
	rootCmd.AddCommand(handoffCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(progressionCmd())
	rootCmd.AddCommand(diagnoseCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(rbacCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func workspaceCmd() *cobra.Command {
	ws := &cobra.Command{Use: "workspace", Short: "Manage workspaces"}
	ws.AddCommand(workspaceListCmd())
	ws.AddCommand(workspaceCreateCmd())
	ws.AddCommand(workspaceShowCmd())
	ws.AddCommand(workspaceUpdateCmd())
	ws.AddCommand(workspaceDeleteCmd())
	ws.AddCommand(workspaceConfigCmd())
	ws.AddCommand(workspaceUseCmd())
	return ws
}

func workspaceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListWorkspaces(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func workspaceCreateCmd() *cobra.Command {
	var id, orgID, name, desc string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := viper.GetString("dir")
			conn, err := db.Open(db.Config{Workspace: dir})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			if name == "" {
				name = id
			}
			cfg := config.Default(id)
			e := engine.New(conn, cfg)
			w, err := e.InitWorkspace(cmd.Context(), id, orgID, name, desc, viper.GetString("actor-id"))
			if err != nil {
				return err
			}
			return printJSONOrTable(w)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "workspace id")
	cmd.Flags().StringVar(&orgID, "org", "default-org", "organisation id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func workspaceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.Repo.GetWorkspace(ctx, e.Config.Workspace.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
}

func workspaceUpdateCmd() *cobra.Command {
	var name, status, description string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var namePtr, statusPtr, descPtr *string
				if cmd.Flags().Changed("name") {
					namePtr = &name
				}
				if cmd.Flags().Changed("status") {
					statusPtr = &status
				}
				if cmd.Flags().Changed("description") {
					descPtr = &description
				}
				w, err := e.UpdateWorkspace(ctx, e.Config.Workspace.ID, namePtr, statusPtr, descPtr, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&status, "status", "", "status (active, archived)")
	cmd.Flags().StringVar(&description, "description", "", "description")
	return cmd
}

func workspaceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteWorkspace(ctx, e.Config.Workspace.ID, viper.GetString("actor-id"))
			})
		},
	}
}

func workspaceUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Set the default workspace for this directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceID := strings.TrimSpace(args[0])
			if workspaceID == "" {
				return fmt.Errorf("workspace id is required")
			}
			dir := viper.GetString("dir")
			if err := setEnvValue(filepath.Join(dir, ".env"), "TEAMFORGE_WORKSPACE", workspaceID); err != nil {
				return err
			}
			fmt.Printf("Set TEAMFORGE_WORKSPACE=%s in %s/.env\n", workspaceID, dir)
			return nil
		},
	}
}

func workspaceConfigCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config is stored in the DB: workspace identity, RBAC role definitions, and webhook endpoints. Import from teamforge.yml if desired.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configImportCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate stored config",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Config.Validate()
			})
			if viper.GetBool("json") {
				out := map[string]any{"ok": err == nil}
				if err != nil {
					out["error"] = err.Error()
				}
				return printJSON(out)
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func configImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import config from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(file)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetWorkspace(ctx, cfg.Workspace.ID); err != nil {
					return err
				}
				if err := r.UpsertWorkspaceConfig(ctx, cfg.Workspace.ID, cfg); err != nil {
					return err
				}
				fmt.Printf("Imported config for workspace %s\n", cfg.Workspace.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "teamforge.yml", "config file path")
	return cmd
}

func configInitCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Print a default config YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(config.GenerateDefault(id))
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "my-team", "workspace id")
	return cmd
}

func roleCmd() *cobra.Command {
	role := &cobra.Command{
		Use:   "role",
		Short: "Manage design roles",
		Long:  "Roles declare who owns what. Ownership claims feed overlap detection; Belbin types feed fit analysis; oversight roles supervise stages and stay out of ownership accounting.",
	}
	role.AddCommand(roleCreateCmd())
	role.AddCommand(roleListCmd())
	role.AddCommand(roleShowCmd())
	role.AddCommand(roleUpdateCmd())
	role.AddCommand(roleDeleteCmd())
	return role
}

func parseOwnsJSON(raw string) ([]analysis.OwnedCategory, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var owns []analysis.OwnedCategory
	if err := json.Unmarshal([]byte(raw), &owns); err != nil {
		return nil, fmt.Errorf("invalid owns JSON: %w", err)
	}
	return owns, nil
}

func roleCreateCmd() *cobra.Command {
	var id, title, primary, secondary, ownsJSON string
	var doesNotOwn, oversees []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			owns, err := parseOwnsJSON(ownsJSON)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.RoleOptions{
					ID:               id,
					WorkspaceID:      e.Config.Workspace.ID,
					Title:            title,
					PrimaryType:      optionalString(primary),
					SecondaryType:    optionalString(secondary),
					Owns:             owns,
					DoesNotOwn:       doesNotOwn,
					OverseesStageIDs: oversees,
					SetOwns:          len(owns) > 0,
					SetDoesNotOwn:    len(doesNotOwn) > 0,
					SetOversees:      len(oversees) > 0,
					ActorID:          viper.GetString("actor-id"),
				}
				r, err := e.CreateRole(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "role id (optional)")
	cmd.Flags().StringVar(&title, "title", "", "role title")
	cmd.Flags().StringVar(&primary, "primary-type", "", "primary Belbin type")
	cmd.Flags().StringVar(&secondary, "secondary-type", "", "secondary Belbin type")
	cmd.Flags().StringVar(&ownsJSON, "owns-json", "", `ownership JSON, e.g. [{"title":"Reporting","items":["Pipeline Reports"]}]`)
	cmd.Flags().StringArrayVar(&doesNotOwn, "does-not-own", []string{}, "explicit exclusion (repeatable)")
	cmd.Flags().StringArrayVar(&oversees, "oversees-stage", []string{}, "stage id this role oversees (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func roleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				roles, err := e.Repo.ListRoles(ctx, e.Config.Workspace.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(roles)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Primary", "Secondary", "Oversight"})
				for _, r := range roles {
					oversight := ""
					if r.OverseesStageIDsJSON != nil && *r.OverseesStageIDsJSON != "" && *r.OverseesStageIDsJSON != "[]" {
						oversight = "yes"
					}
					tw.AppendRow(table.Row{r.ID, r.Title, strOrDash(r.PrimaryType), strOrDash(r.SecondaryType), oversight})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func roleShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.Repo.GetRole(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
}

func roleUpdateCmd() *cobra.Command {
	var title, primary, secondary, ownsJSON string
	var doesNotOwn, oversees []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owns, err := parseOwnsJSON(ownsJSON)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.RoleOptions{
					ID:          args[0],
					WorkspaceID: e.Config.Workspace.ID,
					Title:       title,
					ActorID:     viper.GetString("actor-id"),
				}
				if cmd.Flags().Changed("primary-type") {
					opts.PrimaryType = &primary
				}
				if cmd.Flags().Changed("secondary-type") {
					opts.SecondaryType = &secondary
				}
				if cmd.Flags().Changed("owns-json") {
					opts.Owns = owns
					opts.SetOwns = true
				}
				if cmd.Flags().Changed("does-not-own") {
					opts.DoesNotOwn = doesNotOwn
					opts.SetDoesNotOwn = true
				}
				if cmd.Flags().Changed("oversees-stage") {
					opts.OverseesStageIDs = oversees
					opts.SetOversees = true
				}
				r, err := e.UpdateRole(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "role title")
	cmd.Flags().StringVar(&primary, "primary-type", "", "primary Belbin type")
	cmd.Flags().StringVar(&secondary, "secondary-type", "", "secondary Belbin type")
	cmd.Flags().StringVar(&ownsJSON, "owns-json", "", "ownership JSON (empty array clears)")
	cmd.Flags().StringArrayVar(&doesNotOwn, "does-not-own", []string{}, "explicit exclusion (repeatable)")
	cmd.Flags().StringArrayVar(&oversees, "oversees-stage", []string{}, "stage id this role oversees (repeatable)")
	return cmd
}

func roleDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteRole(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
}

func stageCmd() *cobra.Command {
	stage := &cobra.Command{
		Use:   "stage",
		Short: "Manage pipeline stages",
	}
	stage.AddCommand(stageCreateCmd())
	stage.AddCommand(stageListCmd())
	stage.AddCommand(stageUpdateCmd())
	stage.AddCommand(stageDeleteCmd())
	stage.AddCommand(stageAssignCmd())
	stage.AddCommand(stageUnassignCmd())
	return stage
}

func stageCreateCmd() *cobra.Command {
	var id, name string
	var sortOrder int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateStage(ctx, e.Config.Workspace.ID, id, name, sortOrder, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "stage id (optional)")
	cmd.Flags().StringVar(&name, "name", "", "stage name")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "position in the pipeline")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func stageListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListStages(ctx, e.Config.Workspace.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func stageUpdateCmd() *cobra.Command {
	var name string
	var sortOrder int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var namePtr *string
				var sortPtr *int
				if cmd.Flags().Changed("name") {
					namePtr = &name
				}
				if cmd.Flags().Changed("sort-order") {
					sortPtr = &sortOrder
				}
				s, err := e.UpdateStage(ctx, args[0], namePtr, sortPtr, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "stage name")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "position in the pipeline")
	return cmd
}

func stageDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteStage(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
}

func stageAssignCmd() *cobra.Command {
	var stageID, roleID string
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Staff a stage with a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.AssignStageRole(ctx, stageID, roleID, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&stageID, "stage", "", "stage id")
	cmd.Flags().StringVar(&roleID, "role", "", "role id")
	_ = cmd.MarkFlagRequired("stage")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func stageUnassignCmd() *cobra.Command {
	var stageID, roleID string
	cmd := &cobra.Command{
		Use:   "unassign",
		Short: "Remove a role from a stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.UnassignStageRole(ctx, stageID, roleID, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&stageID, "stage", "", "stage id")
	cmd.Flags().StringVar(&roleID, "role", "", "role id")
	_ = cmd.MarkFlagRequired("stage")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func handoffCmd() *cobra.Command {
	h := &cobra.Command{
		Use:   "handoff",
		Short: "Manage stage handoffs",
		Long:  "Handoffs connect stages. A blank SLA is a gap; tensions record known friction at the boundary.",
	}
	h.AddCommand(handoffCreateCmd())
	h.AddCommand(handoffListCmd())
	h.AddCommand(handoffUpdateCmd())
	h.AddCommand(handoffDeleteCmd())
	return h
}

func handoffCreateCmd() *cobra.Command {
	var id, from, to, sla string
	var tensions []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a handoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				h, err := e.CreateHandoff(ctx, engine.HandoffOptions{
					ID:          id,
					WorkspaceID: e.Config.Workspace.ID,
					FromStageID: from,
					ToStageID:   to,
					SLA:         optionalString(sla),
					Tensions:    tensions,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(h)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "handoff id (optional)")
	cmd.Flags().StringVar(&from, "from", "", "source stage id")
	cmd.Flags().StringVar(&to, "to", "", "target stage id")
	cmd.Flags().StringVar(&sla, "sla", "", "service level agreement")
	cmd.Flags().StringArrayVar(&tensions, "tension", []string{}, "known tension (repeatable)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func handoffListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List handoffs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListHandoffs(ctx, e.Config.Workspace.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func handoffUpdateCmd() *cobra.Command {
	var sla string
	var tensions []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a handoff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var slaPtr *string
				if cmd.Flags().Changed("sla") {
					slaPtr = &sla
				}
				h, err := e.UpdateHandoff(ctx, args[0], slaPtr, tensions, cmd.Flags().Changed("tension"), viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(h)
			})
		},
	}
	cmd.Flags().StringVar(&sla, "sla", "", "service level agreement (empty clears)")
	cmd.Flags().StringArrayVar(&tensions, "tension", []string{}, "known tension (repeatable, replaces)")
	return cmd
}

func handoffDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a handoff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteHandoff(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
}

func categoryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "category",
		Short: "Manage activity categories",
		Long:  "Categories group activities and carry the ideal Belbin profile used by fit analysis.",
	}
	c.AddCommand(categoryCreateCmd())
	c.AddCommand(categoryListCmd())
	c.AddCommand(categoryUpdateCmd())
	c.AddCommand(categoryDeleteCmd())
	return c
}

func categoryCreateCmd() *cobra.Command {
	var id, name, fitReason string
	var idealTypes []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCategory(ctx, engine.CategoryOptions{
					ID:            id,
					WorkspaceID:   e.Config.Workspace.ID,
					Name:          name,
					IdealTypes:    idealTypes,
					FitReason:     optionalString(fitReason),
					SetIdealTypes: len(idealTypes) > 0,
					ActorID:       viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "category id (optional)")
	cmd.Flags().StringVar(&name, "name", "", "category name")
	cmd.Flags().StringArrayVar(&idealTypes, "ideal-type", []string{}, "ideal Belbin type (repeatable)")
	cmd.Flags().StringVar(&fitReason, "fit-reason", "", "why these types fit")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func categoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListCategories(ctx, e.Config.Workspace.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func categoryUpdateCmd() *cobra.Command {
	var name, fitReason string
	var idealTypes []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.CategoryOptions{
					ID:          args[0],
					WorkspaceID: e.Config.Workspace.ID,
					Name:        name,
					ActorID:     viper.GetString("actor-id"),
				}
				if cmd.Flags().Changed("fit-reason") {
					opts.FitReason = &fitReason
				}
				if cmd.Flags().Changed("ideal-type") {
					opts.IdealTypes = idealTypes
					opts.SetIdealTypes = true
				}
				c, err := e.UpdateCategory(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "category name")
	cmd.Flags().StringArrayVar(&idealTypes, "ideal-type", []string{}, "ideal Belbin type (repeatable, replaces)")
	cmd.Flags().StringVar(&fitReason, "fit-reason", "", "why these types fit")
	return cmd
}

func categoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteCategory(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
}

func activityCmd() *cobra.Command {
	a := &cobra.Command{
		Use:   "activity",
		Short: "Manage activities",
		Long:  "Activities are concrete work items. Unassigned activities are flagged as gaps; assignments feed coverage and stretch analysis.",
	}
	a.AddCommand(activityCreateCmd())
	a.AddCommand(activityListCmd())
	a.AddCommand(activityUpdateCmd())
	a.AddCommand(activityDeleteCmd())
	a.AddCommand(activityAssignCmd())
	a.AddCommand(activityUnassignCmd())
	return a
}

func activityCreateCmd() *cobra.Command {
	var id, name, categoryID, stageID string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateActivity(ctx, engine.ActivityOptions{
					ID:          id,
					WorkspaceID: e.Config.Workspace.ID,
					Name:        name,
					CategoryID:  optionalString(categoryID),
					StageID:     optionalString(stageID),
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "activity id (optional)")
	cmd.Flags().StringVar(&name, "name", "", "activity name")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id")
	cmd.Flags().StringVar(&stageID, "stage", "", "stage id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func activityListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListActivities(ctx, e.Config.Workspace.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func activityUpdateCmd() *cobra.Command {
	var name, categoryID, stageID string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.ActivityOptions{
					ID:          args[0],
					WorkspaceID: e.Config.Workspace.ID,
					Name:        name,
					ActorID:     viper.GetString("actor-id"),
				}
				if cmd.Flags().Changed("category") {
					opts.CategoryID = &categoryID
				}
				if cmd.Flags().Changed("stage") {
					opts.StageID = &stageID
				}
				a, err := e.UpdateActivity(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "activity name")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id (empty clears)")
	cmd.Flags().StringVar(&stageID, "stage", "", "stage id (empty clears)")
	return cmd
}

func activityDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteActivity(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
}

func activityAssignCmd() *cobra.Command {
	var activityID, roleID string
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign an activity to a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.AssignActivityRole(ctx, activityID, roleID, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&activityID, "activity", "", "activity id")
	cmd.Flags().StringVar(&roleID, "role", "", "role id")
	_ = cmd.MarkFlagRequired("activity")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func activityUnassignCmd() *cobra.Command {
	var activityID, roleID string
	cmd := &cobra.Command{
		Use:   "unassign",
		Short: "Remove an activity from a role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.UnassignActivityRole(ctx, activityID, roleID, viper.GetString("actor-id"))
			})
		},
	}
	cmd.Flags().StringVar(&activityID, "activity", "", "activity id")
	cmd.Flags().StringVar(&roleID, "role", "", "role id")
	_ = cmd.MarkFlagRequired("activity")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func progressionCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "progression",
		Short: "Manage role growth tracks",
		Long:  "Progressions name a growth track and the activities that stretch a role. Career diagnostics report missing tracks and dangling growth activities.",
	}
	p.AddCommand(progressionSetCmd())
	p.AddCommand(progressionShowCmd())
	p.AddCommand(progressionClearCmd())
	return p
}

func progressionSetCmd() *cobra.Command {
	var track string
	var growth []string
	cmd := &cobra.Command{
		Use:   "set <role-id>",
		Short: "Set a role's growth track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.SetProgression(ctx, engine.ProgressionOptions{
					RoleID:            args[0],
					Track:             optionalString(track),
					GrowthActivityIDs: growth,
					ActorID:           viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&track, "track", "", "growth track name")
	cmd.Flags().StringArrayVar(&growth, "growth-activity", []string{}, "growth activity id (repeatable)")
	return cmd
}

func progressionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <role-id>",
		Short: "Show a role's growth track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProgression(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func progressionClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <role-id>",
		Short: "Clear a role's growth track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteProgression(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
}

func diagnoseCmd() *cobra.Command {
	var focus string
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run structural diagnostics",
		Long:  "Diagnose the workspace: ownership overlaps, staffing and SLA gaps, boundary references, Belbin fit, team composition, and an overall health score.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := analysis.ParseFocus(focus)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.Diagnose(ctx, e.Config.Workspace.ID, f, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				renderReport(report)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&focus, "focus", "full", "focus area: "+strings.Join(analysis.Focuses(), ", "))
	return cmd
}

func renderReport(r analysis.Report) {
	fmt.Println(r.Message)
	if r.Health != nil {
		fmt.Printf("Health: %s (%d issues, SLAs %s, staffing %s)\n",
			r.Health.Severity, r.Health.IssueCount, r.Health.SLARatio, r.Health.StaffingRatio)
	}
	if len(r.Overlaps) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetTitle("Ownership overlaps")
		tw.AppendHeader(table.Row{"Item", "Owners"})
		for _, o := range r.Overlaps {
			tw.AppendRow(table.Row{o.Item, strings.Join(o.Owners, ", ")})
		}
		tw.Render()
	}
	if r.Gaps != nil {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetTitle("Structural gaps")
		tw.AppendHeader(table.Row{"Kind", "Name"})
		for _, s := range r.Gaps.EmptyStages {
			tw.AppendRow(table.Row{"empty stage", s.Name})
		}
		for _, h := range r.Gaps.MissingSLAs {
			tw.AppendRow(table.Row{"missing SLA", h.FromStageID + " -> " + h.ToStageID})
		}
		for _, a := range r.Gaps.UnassignedActivities {
			tw.AppendRow(table.Row{"unassigned activity", a.Name})
		}
		tw.Render()
	}
	if len(r.Boundaries) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetTitle("Boundary references")
		tw.AppendHeader(table.Row{"Item", "Excluded by", "Owned by"})
		for _, b := range r.Boundaries {
			owner := "(unresolved)"
			if b.OwnedBy != nil {
				owner = *b.OwnedBy
			}
			tw.AppendRow(table.Row{b.Item, b.ExcludedBy, owner})
		}
		tw.Render()
	}
	if len(r.Fit) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetTitle("Belbin fit")
		tw.AppendHeader(table.Row{"Category", "Ideal types", "Best-fit roles"})
		for _, f := range r.Fit {
			tw.AppendRow(table.Row{f.Category, strings.Join(f.IdealTypes, ", "), strings.Join(f.BestFitRoles, ", ")})
		}
		tw.Render()
	}
	if len(r.Mismatches) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetTitle("Belbin mismatches")
		tw.AppendHeader(table.Row{"Role", "Category", "Ideal types"})
		for _, m := range r.Mismatches {
			tw.AppendRow(table.Row{m.Role, m.Category, strings.Join(m.IdealTypes, ", ")})
		}
		tw.Render()
	}
	if len(r.Team) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetTitle("Team composition")
		tw.AppendHeader(table.Row{"Category", "Type", "Primary", "Secondary"})
		for _, g := range r.Team {
			for _, u := range g.Roles {
				tw.AppendRow(table.Row{g.Category, u.Label, u.PrimaryCount, u.SecondaryCount})
			}
			if len(g.UncoveredRoles) > 0 {
				tw.AppendRow(table.Row{g.Category, "uncovered: " + strings.Join(g.UncoveredRoles, ", "), "", ""})
			}
		}
		tw.Render()
	}
	if len(r.Stretch) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetTitle("Stretch gaps")
		tw.AppendHeader(table.Row{"Role", "Track", "Growth activity"})
		for _, s := range r.Stretch {
			name := s.ActivityName
			if name == "" {
				name = s.ActivityID
			}
			tw.AppendRow(table.Row{s.Role, s.Track, name})
		}
		tw.Render()
	}
	if r.Summary != nil {
		fmt.Printf("Activities: %d total, %d unassigned, %d owned, %d shared\n",
			r.Summary.Total, r.Summary.Unassigned, r.Summary.Owned, r.Summary.Shared)
	}
	if len(r.Coverage) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetTitle("Role coverage")
		tw.AppendHeader(table.Row{"Role", "Assigned", "Solo", "Shared", "Categories"})
		for _, c := range r.Coverage {
			tw.AppendRow(table.Row{c.Role, c.Assigned, c.Solo, c.Shared, strings.Join(c.Categories, ", ")})
		}
		tw.Render()
	}
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: model edits, diagnostics runs, RBAC changes.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, e.Config.Workspace.ID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func rbacCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rbac",
		Short: "RBAC management",
	}
	cmd.AddCommand(rbacWhoamiCmd())
	cmd.AddCommand(rbacGrantCmd())
	cmd.AddCommand(rbacRevokeCmd())
	cmd.AddCommand(rbacBootstrapCmd())
	return cmd
}

func rbacWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show current actor roles and permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				who, err := e.WhoAmI(ctx, e.Config.Workspace.ID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(who)
			})
		},
	}
}

func rbacGrantCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "grant-role",
		Short: "Grant an access role to an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" || role == "" {
				return fmt.Errorf("--actor and --role required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.GrantRole(ctx, e.Config.Workspace.ID, viper.GetString("actor-id"), target, role)
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	cmd.Flags().StringVar(&role, "role", "", "access role id")
	return cmd
}

func rbacRevokeCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "revoke-role",
		Short: "Revoke an access role from an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" || role == "" {
				return fmt.Errorf("--actor and --role required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RevokeRole(ctx, e.Config.Workspace.ID, viper.GetString("actor-id"), target, role)
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	cmd.Flags().StringVar(&role, "role", "", "access role id")
	return cmd
}

func rbacBootstrapCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap an actor role without RBAC checks (dev only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" || role == "" {
				return fmt.Errorf("--actor and --role required")
			}
			workspaceID := strings.TrimSpace(viper.GetString("workspace"))
			if workspaceID == "" {
				return fmt.Errorf("workspace not specified; use --workspace or set TEAMFORGE_WORKSPACE (tf workspace use <id>)")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetWorkspace(ctx, workspaceID); err != nil {
					return err
				}
				cfg, cfgErr := r.GetWorkspaceConfig(ctx, workspaceID)
				tx, err := r.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if cfgErr == nil && cfg != nil {
					if roleDef, ok := cfg.RBAC.Roles[role]; ok {
						if err := r.InsertAccessRole(ctx, tx, role, roleDef.Description); err != nil {
							return err
						}
						for _, perm := range roleDef.Permissions {
							if err := r.InsertPermission(ctx, tx, perm, ""); err != nil {
								return err
							}
							if err := r.AddRolePermission(ctx, tx, role, perm); err != nil {
								return err
							}
						}
					} else {
						if err := r.InsertAccessRole(ctx, tx, role, ""); err != nil {
							return err
						}
					}
				} else {
					if err := r.InsertAccessRole(ctx, tx, role, ""); err != nil {
						return err
					}
				}
				if err := r.EnsureActor(ctx, tx, target, time.Now().UTC().Format(time.RFC3339)); err != nil {
					return err
				}
				if err := r.AssignAccessRole(ctx, tx, workspaceID, target, role); err != nil {
					return err
				}
				return tx.Commit()
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	cmd.Flags().StringVar(&role, "role", "", "access role id")
	return cmd
}

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "API keys authenticate non-interactive clients against the HTTP API via the X-Api-Key header. Only the hash is stored; the key is shown once.",
	}
	cmd.AddCommand(apikeyCreateCmd())
	cmd.AddCommand(apikeyListCmd())
	cmd.AddCommand(apikeyDeleteCmd())
	return cmd
}

func apikeyCreateCmd() *cobra.Command {
	var name, actor string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actor == "" {
				actor = viper.GetString("actor-id")
			}
			key := uuid.New().String() + uuid.New().String()
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				tx, err := r.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				now := time.Now().UTC().Format(time.RFC3339)
				if err := r.EnsureActor(ctx, tx, actor, now); err != nil {
					return err
				}
				rec := domain.APIKey{
					ID:        uuid.New().String(),
					ActorID:   actor,
					Name:      name,
					KeyHash:   repo.HashAPIKey(key),
					CreatedAt: now,
				}
				if err := r.InsertAPIKey(ctx, tx, rec); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": rec.ID, "actor_id": actor, "key": key})
				}
				fmt.Printf("API key created for %s (id %s). Store it now; it is not shown again:\n%s\n", actor, rec.ID, key)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	cmd.Flags().StringVar(&actor, "actor", "", "actor the key authenticates as (defaults to --actor-id)")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actor == "" {
				actor = viper.GetString("actor-id")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor id (defaults to --actor-id)")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := viper.GetString("dir")
			conn, err := db.Open(db.Config{Workspace: dir})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			_, cfg, err := app.ResolveWorkspaceAndConfig(cmd.Context(), viper.GetString("workspace"), viper.GetString("actor-id"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("TEAMFORGE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("TEAMFORGE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Teamforge API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs, MCP at /mcp)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	dir := viper.GetString("dir")
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	_, cfg, err := app.ResolveWorkspaceAndConfig(ctx, viper.GetString("workspace"), viper.GetString("actor-id"), r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	dir := viper.GetString("dir")
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
