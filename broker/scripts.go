package broker

import "github.com/redis/go-redis/v9"

// Stores the job hash and queues its id on the tube's ready list.
const scriptPut = `
redis.call('HSET', KEYS[1], 'body', ARGV[2], 'tube', ARGV[3], 'ttr', ARGV[4])
redis.call('LPUSH', KEYS[2], ARGV[1])
return ARGV[1]
`

// Marks a popped job reserved until now+ttr and returns body, tube, ttr.
// A job deleted after it was popped yields nil.
const scriptReserve = `
local f = redis.call('HMGET', KEYS[1], 'body', 'tube', 'ttr')
if not f[1] then
  return false
end
redis.call('ZADD', KEYS[2], tonumber(ARGV[2]) + tonumber(f[3]), ARGV[1])
return f
`

// Returns reservations whose ttr elapsed to the head of their ready list.
const scriptRequeue = `
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(ids) do
  redis.call('ZREM', KEYS[1], id)
  local tube = redis.call('HGET', ARGV[2] .. ':job:' .. id, 'tube')
  if tube then
    redis.call('RPUSH', ARGV[2] .. ':tube:' .. tube, id)
  end
end
return #ids
`

// Removes a reserved job. Returns 0 when the job is not reserved.
const scriptDelete = `
if redis.call('ZREM', KEYS[2], ARGV[1]) == 0 then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`

var (
	putLua     = redis.NewScript(scriptPut)
	reserveLua = redis.NewScript(scriptReserve)
	requeueLua = redis.NewScript(scriptRequeue)
	deleteLua  = redis.NewScript(scriptDelete)
)
