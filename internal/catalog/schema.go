package catalog

// categorySchema is the JSON Schema every category YAML document must satisfy.
const categorySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["slug", "title", "topics"],
  "properties": {
    "slug": {"type": "string", "pattern": "^[a-z0-9]+(-[a-z0-9]+)*$"},
    "title": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "order": {"type": "integer"},
    "topics": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["slug", "title"],
        "properties": {
          "slug": {"type": "string", "pattern": "^[a-z0-9]+(-[a-z0-9]+)*$"},
          "title": {"type": "string", "minLength": 1},
          "summary": {"type": "string"},
          "difficulty": {"enum": ["", "Beginner", "Intermediate", "Advanced"]},
          "read_time": {"type": "string"},
          "sections": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "title"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "title": {"type": "string", "minLength": 1},
                "content": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`
