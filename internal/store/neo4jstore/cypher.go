package neo4jstore

// Doubt and answer statements. Timestamps are RFC 3339 strings, so ordering
// and comparison go through datetime().
const (
	findDoubtCypher = `
MATCH (d:Doubt {query_key: $key, content_id: $content_id})
WHERE d.confidence >= $min
RETURN d
LIMIT 1
`

	findDoubtGlobalCypher = `
MATCH (d:Doubt {query_key: $key})
WHERE d.confidence >= $min
RETURN d
ORDER BY d.confidence DESC, datetime(d.updated_at) DESC
LIMIT 1
`

	upsertDoubtCypher = `
MERGE (d:Doubt {query_key: $query_key, content_id: $content_id})
ON CREATE SET d.id = $id, d.created_at = $now, d.escalated = false
SET d.query = $query,
    d.context = $context,
    d.answer = $answer,
    d.confidence = $confidence,
    d.status = $status,
    d.escalated = d.escalated OR $escalated,
    d.resolved_at = coalesce($resolved_at, d.resolved_at),
    d.updated_at = $now
RETURN d
`

	linkDoubtContentCypher = `
MATCH (d:Doubt {query_key: $query_key, content_id: $content_id})
MATCH (c:Content {id: $content_id})
MERGE (d)-[:RELATES_TO]->(c)
`

	escalateStaleCypher = `
MATCH (d:Doubt)
WHERE coalesce(d.escalated, false) = false
  AND d.confidence < $below
  AND datetime(d.updated_at) < datetime($cutoff)
SET d.escalated = true
RETURN count(d) AS escalated
`

	mergeQuestionAnswerCypher = `
MERGE (q:Question {text: $question})
ON CREATE SET q.created_at = $now
SET q.embedding = $embedding, q.updated_at = $now
MERGE (a:Answer {text: $answer})
ON CREATE SET a.created_at = $now
SET a.confidence = $confidence, a.source = $source, a.updated_at = $now
MERGE (q)-[:ANSWERS]->(a)
`
)
