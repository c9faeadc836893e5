package gemini

// Prompt is the default instruction; PROMPT_DIR/gemini/ocr.txt overrides it.
const Prompt = `Analyze the provided image and produce a human-friendly, well-structured textual output.
Rules:
  1) If the image is a grocery/retail receipt:
    - Extract items, quantities, prices, subtotal, tax, and total when present.
    - Present them as a clean list with a short summary (merchant, date) where possible.
    - Group similar items (e.g., "2 x Milk - 120").
  2) If the image contains a question with options:
    - Format as: Question: ... then list Options A., B., C., ...
    - If an answer appears highlighted or selected, indicate that clearly.
  3) If the image contains general text (notes, labels, paragraphs):
    - Extract, correct minor OCR mistakes, and present as clean paragraphs or bullet points.
  4) Do not invent facts that are not visible in the image.
  5) If text is unreadable or uncertain, say: "Some parts were unclear - please re-upload a clearer photo."

Return output as plain text, using simple Markdown-like formatting (headings, bullet points) so it is easy to read.`
