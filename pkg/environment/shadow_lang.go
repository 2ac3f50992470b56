package environment

import (
	"github.com/mlld-lang/mlld-core/pkg/astnode"
	"github.com/mlld-lang/mlld-core/pkg/shadow"
)

func shadowLanguageFor(lang astnode.ExecLanguage) shadow.Language {
	if lang == astnode.LangNode {
		return shadow.LanguageNode
	}
	return shadow.LanguageJS
}
