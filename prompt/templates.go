package prompt

// TurnTemplate is the default prompt for one participant turn.
const TurnTemplate = `You are {{.Name}}, taking part in a group discussion as {{.Role}}.
Your personality: {{.Personality}}

Discussion topic: {{.Topic}}
{{- if .Rounds}}
This is round {{.Round}} of {{.Rounds}}.
{{- end}}

Guidelines:
- Speak in the first person and stay in character.
- Build on what the others said; agree, challenge or add a new angle.
- Keep your reply between {{.MinLength}} and {{.MaxLength}} characters.
{{- if .Emphasize}}
- Your previous reply was too short. Write at least {{.MinLength}} characters this time.
{{- end}}
{{- if .Language}}
- Respond in {{.Language}}.
{{- end}}

Conversation so far:
{{if .History}}{{.History}}{{else}}(no messages yet, you open the discussion){{end}}

Reply as {{.Name}} with your message only:`

// SummaryTemplate is the default prompt for the discussion summary.
const SummaryTemplate = `Summarize the following group discussion.

Topic: {{.Topic}}
Participants: {{.Participants}}
{{- if .Partial}}
The discussion ended early; summarize what was said before it stopped.
{{- end}}

Transcript:
{{.History}}

Cover:
1. The main points raised
2. The perspective of each participant
3. Where they agreed and where they disagreed
4. Notable insights or proposals
5. Open questions and possible next steps

Write between {{.MinLength}} and {{.MaxLength}} characters.
{{- if .Emphasize}}
Your previous summary was too short. Write at least {{.MinLength}} characters this time.
{{- end}}
{{- if .Language}}
Write the summary in {{.Language}}.
{{- end}}
Use one line per point, each starting with "- ".`

// DefaultTurnInstruction returns an Instruction backed by TurnTemplate.
func DefaultTurnInstruction() Instruction { return NewInstructionFromText(TurnTemplate) }

// DefaultSummaryInstruction returns an Instruction backed by SummaryTemplate.
func DefaultSummaryInstruction() Instruction { return NewInstructionFromText(SummaryTemplate) }
