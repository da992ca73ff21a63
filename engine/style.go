/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package engine

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// scopeStyle prefixes every qualified rule selector with the type selector
// `z[type="name"]` so that the rules only reach instances of the type.
// Statement at-rules are kept as they are. Rules nested in conditional
// at-rules are scoped, keyframe selectors are not. Comments and invalid
// declarations are dropped.
func scopeStyle(name, sheet string) string {
	scope := `z[type="` + name + `"] `
	p := css.NewParser(parse.NewInputString(sheet), false)
	var out strings.Builder
	// scoped tells, per open at-rule block, whether its rulesets get the prefix
	var scoped []bool
	indent := func() string {
		return strings.Repeat("\t", len(scoped))
	}
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if p.HasParseError() {
				continue
			}
			return out.String()
		case css.AtRuleGrammar:
			out.WriteString(indent() + string(data) + tokensOf(p.Values()) + ";\n")
		case css.BeginAtRuleGrammar:
			out.WriteString(indent() + string(data) + tokensOf(p.Values()) + " {\n")
			inner := !strings.HasSuffix(string(data), "keyframes")
			if len(scoped) > 0 {
				inner = inner && scoped[len(scoped)-1]
			}
			scoped = append(scoped, inner)
		case css.EndAtRuleGrammar:
			if len(scoped) > 0 {
				scoped = scoped[:len(scoped)-1]
			}
			out.WriteString(indent() + "}\n")
		case css.BeginRulesetGrammar:
			selectors := selectorsOf(p.Values())
			if len(scoped) == 0 || scoped[len(scoped)-1] {
				for i, s := range selectors {
					selectors[i] = scope + s
				}
			}
			if len(scoped) == 0 {
				out.WriteString("\n")
			}
			out.WriteString(indent() + strings.Join(selectors, ", ") + " {\n")
		case css.EndRulesetGrammar:
			out.WriteString(indent() + "}\n")
		case css.DeclarationGrammar:
			out.WriteString(indent() + "\t" + string(data) + ": " + tokensOf(p.Values()) + ";\n")
		case css.CustomPropertyGrammar:
			out.WriteString(indent() + "\t" + string(data) + ": " + strings.TrimSpace(tokensOf(p.Values())) + ";\n")
		case css.TokenGrammar:
			// body of an unknown at-rule, or markup comment delimiters at top level
			if len(scoped) > 0 {
				out.WriteString(string(data))
			}
		}
	}
}

func tokensOf(values []css.Token) string {
	var b strings.Builder
	for _, t := range values {
		b.Write(t.Data)
	}
	return b.String()
}

// selectorsOf splits a selector list on its top level commas.
func selectorsOf(values []css.Token) []string {
	var selectors []string
	var cur strings.Builder
	depth := 0
	for _, t := range values {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				selectors = append(selectors, strings.TrimSpace(cur.String()))
				cur.Reset()
				continue
			}
		}
		cur.Write(t.Data)
	}
	return append(selectors, strings.TrimSpace(cur.String()))
}
