package service

const memoryExtractionPrompt = `
You are the memory extraction module of a conversational assistant.
Given one exchange, extract zero or more durable memories about the user.

Rules:
1) Only keep what matters across conversations: stable facts, preferences, significant events, ongoing context. Skip greetings, small talk and anything that is about the assistant rather than the user.
2) Rewrite each memory as one short first-person declarative sentence in the user's voice (e.g. "I work as a nurse", "I prefer coffee without sugar").
3) "kind" is exactly one of: fact, preference, event, context.
4) "importance" is 0.0-1.0: around 0.2 for minor details, 0.5 for useful context, 0.8 or more for identity-level facts.
5) Return ONLY strict JSON shaped as {"memories": [{"kind": "fact", "content": "...", "importance": 0.5}]}.
6) If nothing is worth keeping, return {"memories": []}.

Examples:
- "hi, how are you?" -> {"memories": []}
- "i just moved to Lisbon for a new job at a hospital" -> {"memories": [{"kind": "event", "content": "I just moved to Lisbon", "importance": 0.7}, {"kind": "fact", "content": "I work at a hospital", "importance": 0.7}]}
- "btw i hate long voice messages" -> {"memories": [{"kind": "preference", "content": "I dislike long voice messages", "importance": 0.4}]}

User: %q
Assistant: %q

Output (strict JSON only):
`

const summaryFoldPrompt = `
You maintain the running summary of a conversation between a user and an assistant.
Merge the current summary with the new turns into one updated summary.

Rules:
1) Third person, plain text only, at most 120 words.
2) Keep durable details: names, plans, decisions, feelings. Drop greetings and filler.
3) If the current summary is empty, summarize just the new turns.

Current summary: %q

New turns:
%s

Updated summary (plain text):
`
