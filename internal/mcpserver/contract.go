package mcpserver

// RunFormat describes how a workspace is turned into a run request and what
// comes back. Exposed as a resource so clients can read it before calling run.
const RunFormat = `# Run request format

A run posts one JSON object to the execution endpoint:

` + "```" + `json
{
  "cmd": "go run .",
  "env": ["GOFLAGS=-mod=mod"],
  "files": [
    {"name": "main.go", "data": "package main\n..."},
    {"name": "pkg/util.go", "data": "package pkg\n..."}
  ]
}
` + "```" + `

## Rules

1. **files** lists every file of the workspace in tree order. Directories are
   implied by the slash-separated names and never appear on their own.
2. **env** is optional and omitted when empty. Each entry is KEY=VALUE.
3. The command runs with the working directory set to the workspace root.
4. The response body is the raw combined output and is returned verbatim.
5. A run that cannot reach the endpoint reports "An error occurred."; a
   cancelled run reports "Run request was cancelled."
6. Only one run per workspace may be outstanding at a time.
`
