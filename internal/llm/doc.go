// Package llm talks to the remote language model. It renders the extraction
// prompts, performs the generateContent call and decodes the model's JSON
// payload into the domain model.
package llm
