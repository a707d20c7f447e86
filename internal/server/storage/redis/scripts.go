package redis

import "github.com/redis/go-redis/v9"

// Every state transition of a record runs as one Lua script so that the
// check and the write cannot interleave with another client.

const (
	rotateStatusNotFound int64 = 0
	rotateStatusRotated  int64 = 1
	rotateStatusExists   int64 = 2
)

// KEYS: record, user index. ARGV: id, token, user_id, issued_at, expires_at,
// is_revoked, created_at, updated_at, expire-at (ms).
const createScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "id", ARGV[1], "token", ARGV[2], "user_id", ARGV[3],
  "issued_at", ARGV[4], "expires_at", ARGV[5], "is_revoked", ARGV[6],
  "created_at", ARGV[7], "updated_at", ARGV[8])
redis.call("PEXPIREAT", KEYS[1], ARGV[9])
redis.call("SADD", KEYS[2], ARGV[2])
return 1
`

// KEYS: record. ARGV: updated_at.
const revokeScript = `
if redis.call("HGET", KEYS[1], "is_revoked") == "0" then
  redis.call("HSET", KEYS[1], "is_revoked", "1", "updated_at", ARGV[1])
  return 1
end
return 0
`

// KEYS: old record, new record, user index of the new record.
// ARGV: updated_at, then the createScript ARGV for the new record.
const rotateScript = `
if redis.call("HGET", KEYS[1], "is_revoked") ~= "0" then
  return {0}
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return {2}
end
redis.call("HSET", KEYS[1], "is_revoked", "1", "updated_at", ARGV[1])
redis.call("HSET", KEYS[2],
  "id", ARGV[2], "token", ARGV[3], "user_id", ARGV[4],
  "issued_at", ARGV[5], "expires_at", ARGV[6], "is_revoked", ARGV[7],
  "created_at", ARGV[8], "updated_at", ARGV[9])
redis.call("PEXPIREAT", KEYS[2], ARGV[10])
redis.call("SADD", KEYS[3], ARGV[3])
local out = redis.call("HGETALL", KEYS[1])
table.insert(out, 1, 1)
return out
`

var (
	createLua = redis.NewScript(createScript)
	revokeLua = redis.NewScript(revokeScript)
	rotateLua = redis.NewScript(rotateScript)
)
