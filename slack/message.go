package slack

// Block is a message building block for chat.postMessage.
type Block struct {
	Type string     `json:"type"`
	Text *BlockText `json:"text,omitempty"`
}

type BlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// HeaderBlock creates a plain-text header block.
func HeaderBlock(text string) Block {
	return Block{Type: "header", Text: &BlockText{Type: "plain_text", Text: text}}
}

// SectionBlock creates a markdown section block.
func SectionBlock(text string) Block {
	return Block{Type: "section", Text: &BlockText{Type: "mrkdwn", Text: text}}
}

// DividerBlock creates a divider block.
func DividerBlock() Block {
	return Block{Type: "divider"}
}
