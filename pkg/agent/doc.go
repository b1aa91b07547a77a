// Package agent holds the orchestration stages of a tool-using run and the typed
// context they share.
//
// A run moves through five stages:
//
//	discover --decide--> decide --execute--> execute --write_answer--> write_answer
//	                                            \--handle_error--> handle_error
//
// Decide returns decode_failed, which has no edge, when the model reply carries no
// usable decision block. The run then ends without an answer.
package agent
