package sqlinline

const QInsertWebhookEvent = `--sql ad467855-346a-4cc4-827b-62da91098da3
insert into webhook_events (id, provider, provider_event_id, event_type, payload, status, attempts, last_error,
                            created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::jsonb, 'pending', 0, '', now(), now())
on conflict on constraint webhook_events_provider_event_key do nothing
returning created_at;
`

// QClaimWebhookEvent picks pending events, failed events below the attempt
// limit once $2 seconds have passed, and processing events abandoned by a
// crashed worker.
const QClaimWebhookEvent = `--sql cc2b42b5-1b45-40e7-883f-72dd0ffd7fb6
with next_event as (
    select id
    from webhook_events
    where status = 'pending'
       or (status = 'failed' and attempts < $1::int and updated_at < now() - make_interval(secs => $2::int))
       or (status = 'processing' and updated_at < now() - interval '5 minutes' and attempts < $1::int)
    order by created_at asc
    for update skip locked
    limit 1
)
update webhook_events e
set status = 'processing',
    attempts = e.attempts + 1,
    updated_at = now()
from next_event
where e.id = next_event.id
returning e.id::text, e.provider, e.provider_event_id, e.event_type, e.payload, e.status, e.attempts,
          e.last_error, e.created_at, e.updated_at, e.processed_at;
`

const QFinishWebhookEvent = `--sql f50460bb-31f6-4b1b-bef3-1e66ec57a548
update webhook_events
set status = $2::text,
    last_error = $3::text,
    processed_at = case when $2::text in ('processed', 'ignored') then now() else processed_at end,
    updated_at = now()
where id = $1::uuid;
`
