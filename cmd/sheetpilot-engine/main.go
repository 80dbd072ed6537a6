package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sheetpilot/engine/internal/actions"
	"sheetpilot/engine/internal/appdirs"
	"sheetpilot/engine/internal/engine"
	"sheetpilot/engine/internal/envfile"
	"sheetpilot/engine/internal/envutil"
	"sheetpilot/engine/internal/errinfo"
	"sheetpilot/engine/internal/formula"
	"sheetpilot/engine/internal/logging"
	"sheetpilot/engine/internal/rpc"
	"sheetpilot/engine/internal/sheet"
	"sheetpilot/engine/internal/xlsxio"
)

func main() {
	root := &cobra.Command{
		Use:           "sheetpilot-engine",
		Short:         "Spreadsheet engine with formula evaluation and AI assist",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), evalCmd(), validateCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON-RPC API over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	envResult := envfile.Load()
	debug := envutil.Bool("SHEETPILOT_DEBUG")
	dataDir, err := appdirs.DataDir()
	if err != nil {
		return fmt.Errorf("engine init failed: %w", err)
	}
	logSetup, logErr := logging.NewFileLogger(dataDir, debug)
	logger := logSetup.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("component", "engine")
	if logSetup.Enabled {
		logger.Info("engine.logging_enabled", "path", logSetup.Path)
	}
	if envResult.Loaded {
		logger.Debug("engine.env_loaded", "path", envResult.Path, "keys", envResult.Keys)
	}
	if envResult.Err != nil {
		logger.Warn("engine.env_load_failed", "path", envResult.Path, "error", envResult.Err.Error())
	}
	if logErr != nil {
		logger.Warn("engine.log_setup_failed", "error", logErr.Error())
	}
	if logSetup.Close != nil {
		defer logSetup.Close()
	}

	eng, err := engine.New(engine.WithLogger(logger))
	if err != nil {
		logger.Error("engine.init_failed", "error", err.Error())
		return fmt.Errorf("engine init failed: %w", err)
	}
	server := rpc.NewServer(engine.APIVersion, os.Stdin, os.Stdout, logger)
	eng.SetNotifier(server.Notify)

	register := func(method string, fn func(context.Context, json.RawMessage) (any, *errinfo.ErrorInfo)) {
		server.Register(method, func(ctx context.Context, params json.RawMessage) (any, *rpc.Error) {
			result, errInfo := fn(ctx, params)
			if errInfo != nil {
				msg := errInfo.ErrorCode
				if errInfo.Detail != "" {
					msg = errInfo.Detail
				}
				return nil, &rpc.Error{Message: msg, Data: errInfo}
			}
			return result, nil
		})
	}

	register("EngineGetInfo", eng.EngineGetInfo)

	register("SheetCreate", eng.SheetCreate)
	register("SheetList", eng.SheetList)
	register("SheetRename", eng.SheetRename)
	register("SheetDelete", eng.SheetDelete)
	register("CellSet", eng.CellSet)
	register("CellGet", eng.CellGet)
	register("RangeGet", eng.RangeGet)
	register("FormulaEvaluate", eng.FormulaEvaluate)
	register("LabelAdd", eng.LabelAdd)
	register("LabelList", eng.LabelList)

	register("ContextAddText", eng.ContextAddText)
	register("ContextAddSheet", eng.ContextAddSheet)
	register("ContextList", eng.ContextList)
	register("ContextRemove", eng.ContextRemove)
	register("AssistSendMessage", eng.AssistSendMessage)
	register("AssistApplyActions", eng.AssistApplyActions)
	register("AssistGetConversation", eng.AssistGetConversation)
	register("AssistClearConversation", eng.AssistClearConversation)

	register("WorkbookImport", eng.WorkbookImport)
	register("WorkbookExport", eng.WorkbookExport)

	register("SettingsGet", eng.SettingsGet)
	register("SettingsSetModel", eng.SettingsSetModel)
	register("SettingsSetApiKey", eng.SettingsSetApiKey)
	register("SettingsClearApiKey", eng.SettingsClearApiKey)
	register("SettingsValidateKey", eng.SettingsValidateKey)

	if err := server.Serve(context.Background()); err != nil {
		logger.Error("rpc.server_error", "error", err.Error())
		log.Fatalf("rpc server error: %v", err)
	}
	return nil
}

func evalCmd() *cobra.Command {
	var workbookPath, sheetName string
	cmd := &cobra.Command{
		Use:   "eval <formula>",
		Short: "Evaluate a formula, optionally against an .xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cells := sheet.CellMap{}
			maps := map[string]sheet.CellMap{}
			if workbookPath != "" {
				sheets, err := xlsxio.Import(workbookPath)
				if err != nil {
					return err
				}
				for _, s := range sheets {
					maps[s.Name] = s.Cells
				}
				if sheetName == "" && len(sheets) > 0 {
					sheetName = sheets[0].Name
				}
				if selected, ok := maps[sheetName]; ok {
					cells = selected
				} else if sheetName != "" {
					return fmt.Errorf("sheet not found: %s", sheetName)
				}
			}
			result := formula.Evaluate(args[0], cells, sheetName, maps)
			fmt.Fprintln(cmd.OutOrStdout(), formula.Display(result))
			return nil
		},
	}
	cmd.Flags().StringVar(&workbookPath, "workbook", "", "path to an .xlsx workbook to evaluate against")
	cmd.Flags().StringVar(&sheetName, "sheet", "", "sheet the formula belongs to (default: first sheet)")
	return cmd
}

func validateCmd() *cobra.Command {
	var sheetList string
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate an AI action batch from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if len(args) == 1 {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			var known []string
			if sheetList != "" {
				known = strings.Split(sheetList, ",")
			}
			resp := actions.ParseResponse(string(raw))
			_, errs := actions.Validate(resp, known)
			if len(errs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			}
			for _, msg := range errs {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			return fmt.Errorf("%d validation error(s)", len(errs))
		},
	}
	cmd.Flags().StringVar(&sheetList, "sheets", "", "comma-separated names of existing sheets")
	return cmd
}
