package queue

// Lua scripts for the atomic queue operations. Each runs as a single Redis
// command, so concurrent poppers never observe the same entry.

// luaPopExcluding removes and returns the first entry whose track id differs
// from the excluded one. Entries it skips stay in place.
//
// KEYS[1] = <genre>-priority | <genre>-backup   (list)
// ARGV[1] = excluded track id ("" for none)
//
// Returns: the entry, or nil when no usable entry exists.
const luaPopExcluding = `
local entries = redis.call("LRANGE", KEYS[1], 0, -1)
local excluded = ARGV[1]

for _, entry in ipairs(entries) do
    local sep = string.find(entry, "|", 1, true)
    local trackID = entry
    if sep then
        trackID = string.sub(entry, 1, sep - 1)
    end
    if excluded == "" or trackID ~= excluded then
        -- every earlier entry was skipped, so the first match is this one
        redis.call("LREM", KEYS[1], 1, entry)
        return entry
    end
end
return false
`

// luaIndexOf returns the zero-based position of an entry in a list.
//
// KEYS[1] = queue list
// ARGV[1] = entry
//
// Returns: the index, or -1 when absent.
const luaIndexOf = `
local entries = redis.call("LRANGE", KEYS[1], 0, -1)
for i, entry in ipairs(entries) do
    if entry == ARGV[1] then
        return i - 1
    end
end
return -1
`
