// Package intake turns raw user input into confirmed transactions.
//
// Each input surface (a text box, an image picker) runs a small state machine:
//
//	Idle -> Extracting -> PreviewReady -> Committing -> Idle
//	                                   \-> Cancelled -> Idle
//
// Text input is debounced and extracted speculatively; images are extracted as
// soon as they are selected. Every input change bumps the surface generation and
// an extraction result is only accepted if it still belongs to the current
// generation, so late replies for superseded input are dropped. A surface holds
// at most one pending preview, which the user either confirms (merging their
// overrides with the extracted fields) or cancels.
package intake
