package astnode

// The New* helpers below exist so callers (mainly tests, since the real
// parser is out of scope) can build directive nodes without repeating the
// directiveBase/base embedding boilerplate.

func newDirectiveBase(id string, loc Location, kind DirectiveKind) directiveBase {
	return directiveBase{base: base{ID: id, Location: loc}, K: kind}
}

func NewVarDirective(id string, loc Location, name string, value Expression) *VarDirective {
	return &VarDirective{directiveBase: newDirectiveBase(id, loc, DirectiveVar), Name: name, Value: value}
}

func NewExeDirective(id string, loc Location, name string, params []string, lang ExecLanguage) *ExeDirective {
	return &ExeDirective{directiveBase: newDirectiveBase(id, loc, DirectiveExe), Name: name, Params: params, Language: lang}
}

func NewRunDirective(id string, loc Location) *RunDirective {
	return &RunDirective{directiveBase: newDirectiveBase(id, loc, DirectiveRun)}
}

func NewShowDirective(id string, loc Location) *ShowDirective {
	return &ShowDirective{directiveBase: newDirectiveBase(id, loc, DirectiveShow)}
}

func NewImportDirective(id string, loc Location, reference string) *ImportDirective {
	return &ImportDirective{directiveBase: newDirectiveBase(id, loc, DirectiveImport), Reference: reference}
}

func NewExportDirective(id string, loc Location, names []string) *ExportDirective {
	return &ExportDirective{directiveBase: newDirectiveBase(id, loc, DirectiveExport), Names: names}
}

func NewWhenDirective(id string, loc Location, branches []WhenBranch) *WhenDirective {
	return &WhenDirective{directiveBase: newDirectiveBase(id, loc, DirectiveWhen), Branches: branches}
}

func NewOutputDirective(id string, loc Location, source Expression, target OutputTarget) *OutputDirective {
	return &OutputDirective{directiveBase: newDirectiveBase(id, loc, DirectiveOutput), Source: source, Target: target}
}

func NewPathDirective(id string, loc Location, name string, tmpl *Template) *PathDirective {
	return &PathDirective{directiveBase: newDirectiveBase(id, loc, DirectivePath), Name: name, Template: tmpl}
}

func NewForDirective(id string, loc Location, varName string, collection Expression, body []Node) *ForDirective {
	return &ForDirective{directiveBase: newDirectiveBase(id, loc, DirectiveFor), VarName: varName, Collection: collection, Body: body}
}

func NewGuardDirective(id string, loc Location, name, phase string, predicate, action Expression) *GuardDirective {
	return &GuardDirective{directiveBase: newDirectiveBase(id, loc, DirectiveGuard), Name: name, Phase: phase, Predicate: predicate, Action: action}
}

func NewText(id string, loc Location, value string) *Text {
	return &Text{base: base{ID: id, Location: loc}, Value: value}
}

func NewDocument(id string, loc Location, children []Node) *Document {
	return &Document{base: base{ID: id, Location: loc}, Children: children}
}

func NewStringLiteral(id string, loc Location, value string) *StringLiteral {
	return &StringLiteral{exprBase: exprBase{base{ID: id, Location: loc}}, Value: value}
}

func NewIdentifier(id string, loc Location, name string) *Identifier {
	return &Identifier{exprBase: exprBase{base{ID: id, Location: loc}}, Name: name}
}

func NewVariableReferencePart(id string, loc Location, name string) *VariableReference {
	return &VariableReference{base: base{ID: id, Location: loc}, Name: name}
}

func NewTemplate(id string, loc Location, parts ...InterpolationPart) *Template {
	return &Template{exprBase: exprBase{base{ID: id, Location: loc}}, Parts: parts}
}
