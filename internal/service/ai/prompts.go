package ai

import (
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// RefusalReply is the fixed answer to questions unrelated to the reviewed project.
const RefusalReply = "I can't help with that."

const (
	opExtractDescription      = "extract_description"
	opRestructureRequirements = "restructure_requirements"
	opSummarizeFile           = "summarize_file"
	opScoreFileQuality        = "score_file_quality"
	opSynthesizeFinalReview   = "synthesize_final_review"
	opSelectRelevantFiles     = "select_relevant_files"
	opGenerateFollowUpAnswer  = "generate_follow_up_answer"
)

const describeSystem = `You analyze assignment briefs and extract the project description from them.
A brief may also mention the student, the course or other context. Ignore all of that.
Reply with ONE concise paragraph that explains the idea of the project.`

const describeUser = `Assignment brief:
{task_description}`

const restructureSystem = `You break project requirements into concrete implementation steps for a student developer.
Reply strictly with a JSON array of strings. Do not add explanations, Markdown or any text outside the array.

Example requirement:
"The app should allow users to register and log in."

Example reply:
["Create a registration form with email and password fields", "Add a /register route that creates users", "Store users in a User model", "Hash passwords before saving them", "Create a login form and a /login route", "Validate credentials and authenticate users", "Persist the login with a session or token"]`

const restructureUser = `Requirements written for the student:
{requirements}`

const summarizeSystem = `You are reviewing one file of a student project.
You receive a short description of the whole project and the content of one file, which may be code, a README, documentation or configuration.
Using the content and the filename, write a clear summary of 2 to 4 sentences describing what the file does or contains and how it contributes to the project.
Write plain prose that helps another developer understand the project structure.`

const summarizeUser = `Project description:
{project_description}

Filename: {file_path}

File content:
{file_content}`

const scoreSystem = `You are reviewing one file of a student project. You receive a summary of the file, its full content, its path and the list of project requirements.

1. **File purpose**: state the role of the file from its name and summary, and judge whether it fulfills that role (✅ True / ❌ False).
2. **Requirement fulfillment**: list ONLY the requirements this file fully (✅) or partially (⚠️) satisfies. Skip requirements it does not address.
3. **Strengths**: point out well implemented parts and name their location in the code (function, class or section).
4. **Improvements needed**: start with critical issues and explain why each matters and how to fix it. Group minor issues such as typos or formatting together.

Treat README files, dependency lists and configuration differently from code modules.`

const scoreUser = `**Project requirements**:
{structured_requirements}

**Filename**: {file_path}

**File summary**:
{file_summary}

**File content**:
{file_content}`

const synthesizeSystem = `You are the lead reviewer of a student project. You already wrote feedback for each file of the submission.
Now write the complete project review in Markdown. Base every judgement on the file feedback and reference filenames or sections where useful.

The review must contain these sections:

1. **Overall Summary**: the overall quality, clarity and correctness of the project.
2. **Requirement Fulfillment**: a Markdown table with the columns Requirement, Status, Notes and Files Involved, one row per requirement.
3. **General Strengths**: notable strengths, why they stand out and where they appear.
4. **Areas for Improvement**: most critical issues first, each with why it matters and where it occurs.
5. **Suggested Next Steps**: actionable advice for improving the project.
6. **Estimated Likelihood of Passing**: how likely the project passes a senior developer review with 70/100 as the threshold, stated as likely, borderline or unlikely, with the main reasons.

Use subheadings and bullet points so the review is easy to scan.`

const synthesizeUser = `**Project description**:
{project_description}

**Project requirements**:
{requirements}

**Feedback on each file**:
{file_feedbacks}`

const selectSystem = `You decide which project files are needed to answer a student's question about their codebase.
If the question can be answered from general knowledge of the project, reply with an empty string.
Otherwise reply with the paths of the 1 or 2 most relevant files, separated by a space, and nothing else: no explanations and no punctuation.
Prefer files with the specific implementation details the question needs, core modules over tests, main files over utilities, and files the question names explicitly.`

const selectUser = `Available files:
{file_summaries}

Student question:
{question}

Reply with space separated paths or an empty string:`

const answerSystem = `You are the lead reviewer who wrote the review of this learner's project, and the learner now asks follow-up questions about it.
You may be given the content of some project files. Use them and the previous conversation to answer.
If the question is not related to the project, reply exactly: ` + RefusalReply + `

Relevant project files:
{relevant_files}`

var (
	describeTemplate    = prompt.FromMessages(schema.FString, schema.SystemMessage(describeSystem), schema.UserMessage(describeUser))
	restructureTemplate = prompt.FromMessages(schema.FString, schema.SystemMessage(restructureSystem), schema.UserMessage(restructureUser))
	summarizeTemplate   = prompt.FromMessages(schema.FString, schema.SystemMessage(summarizeSystem), schema.UserMessage(summarizeUser))
	scoreTemplate       = prompt.FromMessages(schema.FString, schema.SystemMessage(scoreSystem), schema.UserMessage(scoreUser))
	synthesizeTemplate  = prompt.FromMessages(schema.FString, schema.SystemMessage(synthesizeSystem), schema.UserMessage(synthesizeUser))
	selectTemplate      = prompt.FromMessages(schema.FString, schema.SystemMessage(selectSystem), schema.UserMessage(selectUser))
	answerTemplate      = prompt.FromMessages(schema.FString, schema.SystemMessage(answerSystem), schema.MessagesPlaceholder("history", false))
)
