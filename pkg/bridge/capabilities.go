package bridge

import "github.com/sourcegraph/go-lsp"

// Commands accepted by sclang's LSP workspace/executeCommand handler.
const (
	CmdEval              = "supercollider.eval"
	CmdEvaluateSelection = "supercollider.evaluateSelection"
	CmdBootServer        = "supercollider.internal.bootServer"
	CmdRebootServer      = "supercollider.internal.rebootServer"
	CmdQuitServer        = "supercollider.internal.quitServer"
	CmdRecompile         = "supercollider.internal.recompile"
	CmdCmdPeriod         = "supercollider.internal.cmdPeriod"
	CmdOpenPostLog       = "supercollider.internal.openPostLog"
)

// serverCapabilities extends the base capability set with fields from later
// protocol revisions that sclang supports. Fields declared here shadow the
// embedded ones of the same name when marshaling.
type serverCapabilities struct {
	lsp.ServerCapabilities
	CompletionProvider     *completionOptions    `json:"completionProvider,omitempty"`
	SignatureHelpProvider  *signatureHelpOptions `json:"signatureHelpProvider,omitempty"`
	CodeActionProvider     *codeActionOptions    `json:"codeActionProvider,omitempty"`
	DeclarationProvider    bool                  `json:"declarationProvider"`
	ImplementationProvider bool                  `json:"implementationProvider"`
	SelectionRangeProvider bool                  `json:"selectionRangeProvider"`
	FoldingRangeProvider   bool                  `json:"foldingRangeProvider"`
}

type completionOptions struct {
	TriggerCharacters []string       `json:"triggerCharacters,omitempty"`
	CompletionItem    completionItem `json:"completionItem"`
}

type completionItem struct {
	LabelDetailsSupport bool `json:"labelDetailsSupport"`
}

type signatureHelpOptions struct {
	TriggerCharacters   []string `json:"triggerCharacters,omitempty"`
	RetriggerCharacters []string `json:"retriggerCharacters,omitempty"`
}

type codeActionOptions struct {
	CodeActionKinds []string `json:"codeActionKinds,omitempty"`
}

type initializeResult struct {
	Capabilities serverCapabilities `json:"capabilities"`
	ServerInfo   serverInfo         `json:"serverInfo"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// defaultInitializeResult is the initialize response answered on sclang's
// behalf. sclang cannot answer initialize itself while the class library is
// still compiling, and its capability announcement is incomplete anyway, so
// the bridge describes the full supported surface here.
func defaultInitializeResult() initializeResult {
	return initializeResult{
		Capabilities: serverCapabilities{
			ServerCapabilities: lsp.ServerCapabilities{
				TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
					Options: &lsp.TextDocumentSyncOptions{
						OpenClose: true,
						Change:    lsp.TDSKIncremental,
						Save:      &lsp.SaveOptions{},
					},
				},
				HoverProvider:           true,
				DefinitionProvider:      true,
				ReferencesProvider:      true,
				WorkspaceSymbolProvider: true,
				CodeLensProvider:        &lsp.CodeLensOptions{},
				ExecuteCommandProvider: &lsp.ExecuteCommandOptions{
					Commands: []string{
						CmdEval,
						CmdEvaluateSelection,
						CmdBootServer,
						CmdRebootServer,
						CmdQuitServer,
						CmdRecompile,
						CmdCmdPeriod,
						CmdOpenPostLog,
					},
				},
			},
			CompletionProvider: &completionOptions{
				TriggerCharacters: []string{".", "(", "~"},
				CompletionItem:    completionItem{LabelDetailsSupport: true},
			},
			SignatureHelpProvider: &signatureHelpOptions{
				TriggerCharacters:   []string{"("},
				RetriggerCharacters: []string{","},
			},
			CodeActionProvider:     &codeActionOptions{CodeActionKinds: []string{"source"}},
			DeclarationProvider:    true,
			ImplementationProvider: true,
			SelectionRangeProvider: true,
			FoldingRangeProvider:   true,
		},
		ServerInfo: serverInfo{Name: "sclang:LSPConnection", Version: "0.1"},
	}
}
