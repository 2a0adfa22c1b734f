package mcpserver

// FlagFormatContract describes the @ai flag syntax and the inline reply
// format that LLM consumers should follow when reading or writing
// Anthra documents.
const FlagFormatContract = `# Anthra AI Flag Format Contract

Documents are Markdown files addressed by a four-segment path:
` + "`" + `project/context-type/artifact/filename` + "`" + `.

## Flagging items

Attach an ` + "`" + `@ai` + "`" + ` flag to a list item to request an AI response:

` + "```" + `markdown
## Blockers

- Waiting on API keys @ai
- Webpack build fails on CI @ai:cursor
- Pick a pricing model for the Swedish market @ai:claude,local
` + "```" + `

## Rules

1. **Flag forms.** ` + "`" + `@ai` + "`" + ` routes automatically; ` + "`" + `@ai:model` + "`" + ` forces a model;
   ` + "`" + `@ai:model1,model2` + "`" + ` lists models in preference order. Matching is
   case-insensitive.
2. **Known models** are ` + "`" + `claude` + "`" + `, ` + "`" + `cursor` + "`" + ` and ` + "`" + `local` + "`" + `. Unknown names are
   passed through as-is.
3. **Placement.** Flags belong on list items (` + "`" + `- ` + "`" + `, ` + "`" + `* ` + "`" + ` or ` + "`" + `1. ` + "`" + `).
   A multi-line item carries its flag until the next blank line or list item.
4. **Sections** are level-2 headers (` + "`" + `## Name` + "`" + `). Items above the first
   section belong to ` + "`" + `Introduction` + "`" + `.
5. **One flag, one response.** Every ` + "`" + `@ai` + "`" + ` occurrence is handled
   separately, even on the same line.

## Reply format

Responses are written back as blockquotes directly under the flagged
item, surrounded by blank lines:

` + "```" + `markdown
- Waiting on API keys @ai:claude

> **AI (Claude, 02/05/2026, 03:04 PM):**
> *Detected 3 business-related keywords.*
>
> Check the shared vault first, then rotate the keys.
` + "```" + `

1. The attribution header names the model (` + "`" + `Claude` + "`" + `, ` + "`" + `Cursor` + "`" + `,
   ` + "`" + `Local AI` + "`" + `) and a timestamp.
2. An optional italic line carries the routing reason.
3. Every response line is prefixed with ` + "`" + `> ` + "`" + `; blank lines become a bare
   ` + "`" + `>` + "`" + `. Code fence markers stay unprefixed so fenced blocks render.
4. A second reply to the same item is stacked below the first, never
   merged into it.

## Privacy

Content routed to ` + "`" + `claude` + "`" + ` is redacted first: emails become
` + "`" + `{{user_email_N}}` + "`" + ` and known first/last name pairs become
` + "`" + `{{user_name_N}}` + "`" + `. The ` + "`" + `local` + "`" + ` model receives content unredacted.
`
