package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/basalt-dev/sourcelens/internal/langextract"
)

// treeSitterExtractor implements Extractor for every language
// internal/langextract carries a tree-sitter grammar for. Pass 1 (types and
// functions) reuses langextract's existing per-language symbol extraction
// rather than re-walking the parse tree; pass 2 (call sites) is a second,
// generic walk over the same tree using callSyntax below.
//
// Call resolution only recognizes bare names and single-level
// `object.member` calls (goExtractor's extractCalleeID also follows longer
// selector chains); neither attempts cross-file or cross-type resolution.
type treeSitterExtractor struct {
	rootDir string
	lang    string
}

// NewTreeSitterExtractor creates an Extractor for a langextract-supported
// language other than Go. lang must be one of the identifiers
// langextract.Parse dispatches on ("python", "typescript", "javascript",
// "rust", "c", "cpp", "java", "php", "ruby").
func NewTreeSitterExtractor(rootDir, lang string) Extractor {
	return &treeSitterExtractor{rootDir: rootDir, lang: lang}
}

// callSyntax describes how one language's grammar expresses a call
// expression, so extractCallsTreeSitter can stay language-agnostic.
type callSyntax struct {
	// callKinds are the node kinds that represent a call expression.
	callKinds []string
	// calleeField is the field on the call node holding the callee
	// expression. Empty when the call node carries the name directly
	// (Java's method_invocation, Ruby's call).
	calleeField string
	// directNameField is used instead of calleeField when the call node
	// holds the method name directly.
	directNameField string
	// receiverField is the optional field holding a receiver/object when
	// directNameField is used.
	receiverField string
	// memberFields maps a member-access node kind to its (object, property)
	// field names, for resolving `obj.method()`-shaped callees.
	memberFields map[string][2]string
}

var callSyntaxByLang = map[string]callSyntax{
	"python": {
		callKinds:    []string{"call"},
		calleeField:  "function",
		memberFields: map[string][2]string{"attribute": {"object", "attribute"}},
	},
	"javascript": {
		callKinds:    []string{"call_expression"},
		calleeField:  "function",
		memberFields: map[string][2]string{"member_expression": {"object", "property"}},
	},
	"typescript": {
		callKinds:    []string{"call_expression"},
		calleeField:  "function",
		memberFields: map[string][2]string{"member_expression": {"object", "property"}},
	},
	"rust": {
		callKinds:    []string{"call_expression"},
		calleeField:  "function",
		memberFields: map[string][2]string{"field_expression": {"value", "field"}},
	},
	"c": {
		callKinds:    []string{"call_expression"},
		calleeField:  "function",
		memberFields: map[string][2]string{"field_expression": {"argument", "field"}},
	},
	"cpp": {
		callKinds:    []string{"call_expression"},
		calleeField:  "function",
		memberFields: map[string][2]string{"field_expression": {"argument", "field"}},
	},
	"java": {
		callKinds:       []string{"method_invocation"},
		directNameField: "name",
		receiverField:   "object",
	},
	"php": {
		callKinds:    []string{"function_call_expression"},
		calleeField:  "function",
		memberFields: map[string][2]string{"member_call_expression": {"object", "name"}},
	},
	"ruby": {
		callKinds:       []string{"call"},
		directNameField: "method",
		receiverField:   "receiver",
	},
}

// bareIdentifierKinds are the node kinds treated as a simple name across the
// grammars above. PHP names its bare identifiers "name" rather than
// "identifier"; everything else uses "identifier".
var bareIdentifierKinds = map[string]bool{
	"identifier": true,
	"name":       true,
}

func (e *treeSitterExtractor) ExtractCodeStructure(filePath string) (*CodeStructure, error) {
	relPath, err := filepath.Rel(e.rootDir, filePath)
	if err != nil {
		relPath = filePath
	}

	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	ctx := context.Background()
	extraction, err := langextract.Parse(ctx, e.lang, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s file: %w", e.lang, err)
	}
	if extraction == nil || extraction.Symbols == nil {
		return &CodeStructure{}, nil
	}

	modulePath := extraction.Symbols.PackageName
	if modulePath == "" {
		modulePath = strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	}

	result := &CodeStructure{
		Functions:      []Function{},
		Types:          []Type{},
		TypeFields:     []TypeField{},
		FunctionParams: []FunctionParameter{},
		FunctionCalls:  []FunctionCall{},
		Imports:        []Import{},
	}

	for _, t := range extraction.Symbols.Types {
		result.Types = append(result.Types, Type{
			ID:         relPath + "::" + t.Name,
			FilePath:   relPath,
			ModulePath: modulePath,
			Name:       t.Name,
			Kind:       t.Type,
			StartLine:  t.StartLine,
			EndLine:    t.EndLine,
			IsExported: isExportedName(e.lang, t.Name),
		})
	}

	for _, fn := range extraction.Symbols.Functions {
		result.Functions = append(result.Functions, Function{
			ID:         relPath + "::" + fn.Name,
			FilePath:   relPath,
			ModulePath: modulePath,
			Name:       fn.Name,
			StartLine:  fn.StartLine,
			EndLine:    fn.EndLine,
			LineCount:  fn.EndLine - fn.StartLine + 1,
			IsExported: isExportedName(e.lang, fn.Name),
			IsMethod:   fn.Type == "method",
		})
	}

	calls, err := e.extractCallsTreeSitter(source, relPath, result.Functions)
	if err != nil {
		return nil, err
	}
	result.FunctionCalls = calls

	return result, nil
}

// ExtractFile adapts ExtractCodeStructure's output to the legacy
// FileGraphData shape, so this extractor can be dropped into Builder
// alongside goExtractor. Only function/method nodes and call edges are
// produced; interface/struct implementation inference stays Go-only, since
// signature-based matching isn't meaningful without a shared type system
// across these grammars.
func (e *treeSitterExtractor) ExtractFile(filePath string) (*FileGraphData, error) {
	relPath, err := filepath.Rel(e.rootDir, filePath)
	if err != nil {
		relPath = filePath
	}

	structure, err := e.ExtractCodeStructure(filePath)
	if err != nil {
		return nil, err
	}

	result := &FileGraphData{FilePath: relPath, Nodes: []Node{}, Edges: []Edge{}}
	for _, fn := range structure.Functions {
		kind := NodeFunction
		if fn.IsMethod {
			kind = NodeMethod
		}
		result.Nodes = append(result.Nodes, Node{
			ID:        fn.ID,
			Kind:      kind,
			File:      relPath,
			StartLine: fn.StartLine,
			EndLine:   fn.EndLine,
		})
	}
	for _, call := range structure.FunctionCalls {
		result.Edges = append(result.Edges, Edge{
			From: call.CallerFunctionID,
			To:   call.CalleeName,
			Type: EdgeCalls,
			Location: &Location{
				File: relPath,
				Line: call.CallLine,
			},
		})
	}
	return result, nil
}

// extractCallsTreeSitter walks the parse tree for every call expression,
// resolves its callee to a bare name (skipping anything deeper than one
// member-access level), and attributes it to the innermost function whose
// line range contains the call.
func (e *treeSitterExtractor) extractCallsTreeSitter(source []byte, relPath string, functions []Function) ([]FunctionCall, error) {
	syntax, ok := callSyntaxByLang[e.lang]
	if !ok {
		return nil, nil
	}

	language := langextract.LanguageFor(e.lang)
	if language == nil {
		return nil, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s file: %s", e.lang, relPath)
	}
	defer tree.Close()

	callKindSet := make(map[string]bool, len(syntax.callKinds))
	for _, k := range syntax.callKinds {
		callKindSet[k] = true
	}

	var calls []FunctionCall
	callID := 0
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if callKindSet[node.Kind()] {
			if name := resolveCalleeName(node, source, syntax); name != "" {
				line := int(node.StartPosition().Row) + 1
				column := int(node.StartPosition().Column)
				caller := enclosingFunctionID(functions, line)
				calls = append(calls, FunctionCall{
					ID:               fmt.Sprintf("%s::call%d", relPath, callID),
					CallerFunctionID: caller,
					CalleeName:       name,
					SourceFilePath:   relPath,
					CallLine:         line,
					CallColumn:       &column,
				})
				callID++
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(uint(i)))
		}
	}
	walk(tree.RootNode())

	return calls, nil
}

// resolveCalleeName extracts a call's callee as a bare name, or "" if the
// callee is more complex than a single identifier or one-level member
// access.
func resolveCalleeName(call *sitter.Node, source []byte, syntax callSyntax) string {
	if syntax.directNameField != "" {
		nameNode := call.ChildByFieldName(syntax.directNameField)
		if nameNode == nil {
			return ""
		}
		name := nodeText(nameNode, source)
		if syntax.receiverField != "" {
			if recv := call.ChildByFieldName(syntax.receiverField); recv != nil && bareIdentifierKinds[recv.Kind()] {
				return nodeText(recv, source) + "." + name
			}
		}
		return name
	}

	calleeNode := call.ChildByFieldName(syntax.calleeField)
	if calleeNode == nil {
		return ""
	}

	if bareIdentifierKinds[calleeNode.Kind()] {
		return nodeText(calleeNode, source)
	}

	if fields, ok := syntax.memberFields[calleeNode.Kind()]; ok {
		objNode := calleeNode.ChildByFieldName(fields[0])
		propNode := calleeNode.ChildByFieldName(fields[1])
		if objNode != nil && propNode != nil && bareIdentifierKinds[objNode.Kind()] {
			return nodeText(objNode, source) + "." + nodeText(propNode, source)
		}
	}

	return ""
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// enclosingFunctionID returns the ID of the smallest-span function whose
// range contains line, or "" if none does (a module-level call).
func enclosingFunctionID(functions []Function, line int) string {
	var best *Function
	for i := range functions {
		fn := &functions[i]
		if line < fn.StartLine || line > fn.EndLine {
			continue
		}
		if best == nil || (fn.EndLine-fn.StartLine) < (best.EndLine-best.StartLine) {
			best = fn
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

// isExportedName approximates export/visibility across languages that don't
// share Go's uppercase-first-letter convention. Python/Ruby treat a leading
// underscore as private; everything else is reported exported, since most
// of these grammars have no syntactic visibility marker and langextract's
// symbol pass doesn't carry modifier keywords (e.g. Java's "private").
func isExportedName(lang, name string) bool {
	if name == "" {
		return false
	}
	switch lang {
	case "python", "ruby":
		return !strings.HasPrefix(name, "_")
	default:
		return true
	}
}
