package mcpserver

// Guide describes the story graph model to LLM clients that edit it.
const Guide = `# Story Graph Guide

A story is a directed graph of passages.

## Nodes

- Every node has an immutable ` + "`id`" + ` (UUIDv7, sorts by creation time), a
  ` + "`title`" + ` and exactly one ` + "`content`" + `.
- ` + "`title`" + ` is required and must not be blank. Titles are not unique;
  ` + "`find_nodes`" + ` returns every node with an exactly matching title.
- ` + "`content.text`" + ` holds the passage, at most 1000 characters. It may be empty.
- ` + "`content.illustration`" + ` optionally names an image stored with
  ` + "`upload_illustration`" + `.
- ` + "`update_node`" + ` replaces title and text in place. The node id and the content id
  never change.

## Choices

- A choice is an edge from a parent node to a child node with a non-blank
  ` + "`choice_text`" + ` shown to the reader.
- ` + "`fork_node`" + ` creates a new child and its choice in one step. If either part
  fails nothing is stored.
- ` + "`link_nodes`" + ` connects two existing nodes. Loops back to earlier passages,
  including a node linking to itself, are allowed.
- Deleting a node removes every choice leading to or from it.

## Illustrations

- Upload with ` + "`upload_illustration`" + ` (http(s) URL or base64 data URI). The tool
  returns a ` + "`filename`" + `; pass it as ` + "`illustration`" + ` to ` + "`create_node`" + ` or ` + "`update_node`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg. Maximum size 10 MB.
- Files are served at ` + "`/illustrations/<filename>`" + `.

## Example

1. ` + "`create_node`" + ` title "Start", text "Once upon a time, "
2. ` + "`fork_node`" + ` parent_id <Start id>, title "Branch A", text "you went left",
   choice_text "Go left"
3. ` + "`link_nodes`" + ` parent_id <Branch A id>, child_id <Start id>, choice_text "Go back"
`
